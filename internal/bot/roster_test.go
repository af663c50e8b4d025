package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"leaguebot/internal/league"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
)

func field(t *testing.T, embed *discordgo.MessageEmbed, name string) string {
	t.Helper()
	for _, f := range embed.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("embed %q has no field %q", embed.Title, name)
	return ""
}

func mustRun(t *testing.T, bot *Bot, caller Caller, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionResponseData {
	t.Helper()
	reply := run(bot, caller, data)
	if isError(reply) {
		t.Fatalf("/%s failed: %s", data.Name, reply.Embeds[0].Description)
	}
	return reply
}

func clubMoney(t *testing.T, db *league.DatabaseLeague, name string) float64 {
	t.Helper()
	club, err := db.GetClubByName(context.Background(), name)
	if err != nil {
		t.Fatalf("could not read club %s: %v", name, err)
	}
	return club.Money
}

func TestListClubs(t *testing.T) {
	bot, _, _ := setupTestBot(t)

	reply := run(bot, memberCaller, command("list_clubs"))
	if !isError(reply) || reply.Embeds[0].Description != "No clubs registered yet!" {
		t.Errorf("expected empty league error, got %+v", reply)
	}

	createClubs(t, bot)
	reply = mustRun(t, bot, memberCaller, command("list_clubs"))
	want := "1. **Rovers**, owned by <@100>\n2. **United**, owned by <@200>\n"
	if reply.Embeds[0].Title != "Clubs (2)" || reply.Embeds[0].Description != want {
		t.Errorf("unexpected list %q: %q", reply.Embeds[0].Title, reply.Embeds[0].Description)
	}
}

func TestSetClubMoneyAndRichestClubs(t *testing.T) {
	bot, db, _ := setupTestBot(t)
	createClubs(t, bot)

	if reply := run(bot, memberCaller, command("set_club_money", stringOpt("club", "Rovers"), numberOpt("amount", 10))); !isError(reply) {
		t.Fatalf("members cannot set money")
	}
	reply := mustRun(t, bot, adminCaller, command("set_club_money", stringOpt("club", "Rovers"), numberOpt("amount", 2500.5)))
	if reply.Content != "Money of `Rovers` set to €2,500.50" {
		t.Errorf("unexpected reply %q", reply.Content)
	}
	if money := clubMoney(t, db, "Rovers"); money != 2500.5 {
		t.Errorf("money = %v, want 2500.5", money)
	}
	reply = run(bot, adminCaller, command("set_club_money", stringOpt("club", "Ghosts"), numberOpt("amount", 1)))
	if !isError(reply) || reply.Embeds[0].Description != "Club `Ghosts` not found!" {
		t.Errorf("expected club not found, got %+v", reply)
	}

	mustRun(t, bot, adminCaller, command("set_club_money", stringOpt("club", "United"), numberOpt("amount", 100)))
	reply = mustRun(t, bot, memberCaller, command("richest_clubs"))
	if reply.Embeds[0].Description != "1. **Rovers**: €2,500.50\n2. **United**: €100.00\n" {
		t.Errorf("unexpected ranking %q", reply.Embeds[0].Description)
	}
	reply = mustRun(t, bot, memberCaller, command("richest_clubs", intOpt("limit", 1)))
	if reply.Embeds[0].Description != "1. **Rovers**: €2,500.50\n" {
		t.Errorf("limit not honoured: %q", reply.Embeds[0].Description)
	}
}

func TestSetClubRole(t *testing.T) {
	bot, db, _ := setupTestBot(t)
	createClubs(t, bot)
	ctx := context.Background()

	if reply := run(bot, memberCaller, command("set_club_role", stringOpt("club", "Rovers"), roleOpt("role", "555"))); !isError(reply) {
		t.Fatalf("members cannot set roles")
	}
	reply := mustRun(t, bot, adminCaller, command("set_club_role", stringOpt("club", "Rovers"), roleOpt("role", "555")))
	if reply.Content != "Members of <@&555> now get the match notices of `Rovers`" {
		t.Errorf("unexpected reply %q", reply.Content)
	}
	if club, _ := db.GetClubByName(ctx, "Rovers"); club.RoleId != "555" {
		t.Errorf("role = %q, want 555", club.RoleId)
	}

	reply = mustRun(t, bot, adminCaller, command("set_club_role", stringOpt("club", "Rovers")))
	if reply.Content != "Club `Rovers` has no role anymore, its owner gets the match notices" {
		t.Errorf("unexpected reply %q", reply.Content)
	}
	if club, _ := db.GetClubByName(ctx, "Rovers"); club.RoleId != "" {
		t.Errorf("role = %q, want none", club.RoleId)
	}
}

func TestCreatePlayerAndPlayerInfo(t *testing.T) {
	bot, _, _ := setupTestBot(t)
	createClubs(t, bot)
	create := command("create_player", stringOpt("name", "Ana Costa"), numberOpt("value", 1500000),
		stringOpt("position", "Forward"), intOpt("age", 24), stringOpt("club", "Rovers"))

	if reply := run(bot, memberCaller, create); !isError(reply) {
		t.Fatalf("members cannot create players")
	}
	reply := mustRun(t, bot, adminCaller, create)
	embed := reply.Embeds[0]
	if embed.Title != "Player created" || embed.Description != "**Ana Costa** joined **Rovers**" {
		t.Errorf("unexpected embed %+v", embed)
	}
	if value := field(t, embed, "Value"); value != "€1,500,000.00" {
		t.Errorf("value = %q", value)
	}

	reply = run(bot, adminCaller, create)
	if !isError(reply) || reply.Embeds[0].Description != "Player `Ana Costa` already exists" {
		t.Errorf("expected duplicate error, got %+v", reply)
	}
	reply = run(bot, adminCaller, command("create_player", stringOpt("name", "Lee Moss"), numberOpt("value", 1), stringOpt("club", "Ghosts")))
	if !isError(reply) || reply.Embeds[0].Description != "Club `Ghosts` not found!" {
		t.Errorf("expected club not found, got %+v", reply)
	}

	embed = mustRun(t, bot, memberCaller, command("player_info", stringOpt("name", "Ana Costa"))).Embeds[0]
	if embed.Title != "Ana Costa" {
		t.Errorf("title = %q", embed.Title)
	}
	for name, want := range map[string]string{"Club": "Rovers", "Position": "Forward", "Age": "24", "Transfers": "0"} {
		if got := field(t, embed, name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	mustRun(t, bot, adminCaller, command("create_player", stringOpt("name", "Jo Park"), numberOpt("value", 10)))
	embed = mustRun(t, bot, memberCaller, command("player_info", stringOpt("name", "Jo Park"))).Embeds[0]
	if club := field(t, embed, "Club"); club != "Free agent" {
		t.Errorf("club = %q, want a free agent", club)
	}
	if len(embed.Fields) != 3 {
		t.Errorf("unknown position and age should be left out, got %d fields", len(embed.Fields))
	}

	reply = run(bot, memberCaller, command("player_info", stringOpt("name", "Nobody")))
	if !isError(reply) || reply.Embeds[0].Description != "Player `Nobody` not found!" {
		t.Errorf("expected player not found, got %+v", reply)
	}
}

func TestTransferPlayerCommand(t *testing.T) {
	bot, db, _ := setupTestBot(t)
	createClubs(t, bot)
	mustRun(t, bot, adminCaller, command("set_club_money", stringOpt("club", "United"), numberOpt("amount", 1000)))
	mustRun(t, bot, adminCaller, command("create_player", stringOpt("name", "Jo Park"), numberOpt("value", 300)))
	transfer := func(club string, fee float64) discordgo.ApplicationCommandInteractionData {
		return command("transfer_player", stringOpt("player", "Jo Park"), stringOpt("club", club), numberOpt("fee", fee))
	}

	if reply := run(bot, memberCaller, transfer("United", 400)); !isError(reply) {
		t.Fatalf("members cannot transfer players")
	}
	embed := mustRun(t, bot, adminCaller, transfer("United", 400)).Embeds[0]
	if embed.Description != "**Jo Park** signed for **United** as a free agent" || field(t, embed, "Fee") != "€400.00" {
		t.Errorf("unexpected embed %+v", embed)
	}
	if money := clubMoney(t, db, "United"); money != 600 {
		t.Errorf("buyer money = %v, want 600", money)
	}

	reply := run(bot, adminCaller, transfer("Rovers", 100))
	if !isError(reply) || reply.Embeds[0].Description != "`Rovers` cannot afford a fee of €100.00" {
		t.Errorf("expected insufficient funds, got %+v", reply)
	}
	reply = run(bot, adminCaller, transfer("United", 0))
	if !isError(reply) || reply.Embeds[0].Description != "`Jo Park` already plays for `United`" {
		t.Errorf("expected already in club, got %+v", reply)
	}

	mustRun(t, bot, adminCaller, command("set_club_money", stringOpt("club", "Rovers"), numberOpt("amount", 500)))
	embed = mustRun(t, bot, adminCaller, transfer("Rovers", 100)).Embeds[0]
	if embed.Description != "**Jo Park** moved from **United** to **Rovers**" {
		t.Errorf("unexpected description %q", embed.Description)
	}
	if money := clubMoney(t, db, "United"); money != 700 {
		t.Errorf("seller money = %v, want 700", money)
	}

	recent := mustRun(t, bot, memberCaller, command("recent_transfers")).Embeds[0].Description
	latest := strings.Index(recent, "1. **Jo Park**: United to Rovers for €100.00")
	first := strings.Index(recent, "2. **Jo Park**: free agency to United for €400.00")
	if latest < 0 || first < latest {
		t.Errorf("unexpected transfers %q", recent)
	}
	if count := field(t, mustRun(t, bot, memberCaller, command("player_info", stringOpt("name", "Jo Park"))).Embeds[0], "Transfers"); count != "2" {
		t.Errorf("transfers = %q, want 2", count)
	}

	reply = run(bot, adminCaller, command("transfer_player", stringOpt("player", "Nobody"), stringOpt("club", "Rovers")))
	if !isError(reply) || reply.Embeds[0].Description != "Player `Nobody` not found!" {
		t.Errorf("expected player not found, got %+v", reply)
	}
}

func TestClubInfoShowsSquad(t *testing.T) {
	bot, _, _ := setupTestBot(t)
	createClubs(t, bot)
	mustRun(t, bot, adminCaller, command("set_club_role", stringOpt("club", "Rovers"), roleOpt("role", "555")))
	for i := 1; i <= squadPreview+1; i++ {
		mustRun(t, bot, adminCaller, command("create_player", stringOpt("name", fmt.Sprintf("Player %d", i)),
			numberOpt("value", float64(i*100)), stringOpt("club", "Rovers")))
	}

	embed := mustRun(t, bot, memberCaller, command("club_info", stringOpt("name", "Rovers"))).Embeds[0]
	if embed.Title != "Rovers" {
		t.Errorf("title = %q", embed.Title)
	}
	for name, want := range map[string]string{"Owner": "<@100>", "Money": "€0.00", "Role": "<@&555>", "Players": "6", "Squad value": "€2,100.00"} {
		if got := field(t, embed, name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	squad := field(t, embed, "Top players")
	if !strings.HasPrefix(squad, "**Player 6**, €600.00\n") || !strings.HasSuffix(squad, "and 1 more") {
		t.Errorf("unexpected squad %q", squad)
	}

	embed = mustRun(t, bot, memberCaller, command("club_info", stringOpt("name", "United"))).Embeds[0]
	if field(t, embed, "Role") != "None" || len(embed.Fields) != 5 {
		t.Errorf("a club without players shows no squad, got %+v", embed.Fields)
	}
	reply := run(bot, memberCaller, command("club_info", stringOpt("name", "Ghosts")))
	if !isError(reply) || reply.Embeds[0].Description != "Club `Ghosts` not found!" {
		t.Errorf("expected club not found, got %+v", reply)
	}
}

func TestPlayerListings(t *testing.T) {
	bot, _, _ := setupTestBot(t)
	createClubs(t, bot)

	if reply := run(bot, memberCaller, command("free_agents")); !isError(reply) || reply.Embeds[0].Description != "There are no free agents!" {
		t.Errorf("expected no free agents, got %+v", reply)
	}
	if reply := run(bot, memberCaller, command("top_players")); !isError(reply) || reply.Embeds[0].Description != "No players registered yet!" {
		t.Errorf("expected no players, got %+v", reply)
	}
	if reply := run(bot, memberCaller, command("recent_transfers")); !isError(reply) || reply.Embeds[0].Description != "No transfers yet!" {
		t.Errorf("expected no transfers, got %+v", reply)
	}

	mustRun(t, bot, adminCaller, command("create_player", stringOpt("name", "Ana Costa"), numberOpt("value", 900), stringOpt("club", "Rovers")))
	mustRun(t, bot, adminCaller, command("create_player", stringOpt("name", "Jo Park"), numberOpt("value", 300), stringOpt("position", "Goalkeeper")))

	embed := mustRun(t, bot, memberCaller, command("free_agents")).Embeds[0]
	if embed.Title != "Free Agents (1)" || embed.Description != "1. **Jo Park** (Goalkeeper), €300.00\n" {
		t.Errorf("unexpected free agents %+v", embed)
	}
	embed = mustRun(t, bot, memberCaller, command("top_players")).Embeds[0]
	if embed.Description != "1. **Ana Costa** (Rovers): €900.00\n2. **Jo Park** (free agent): €300.00\n" {
		t.Errorf("unexpected top players %q", embed.Description)
	}
}

func TestLeagueStatsAndInfoBot(t *testing.T) {
	bot, _, _ := setupTestBot(t)
	createClubs(t, bot)
	mustRun(t, bot, adminCaller, command("set_club_money", stringOpt("club", "Rovers"), numberOpt("amount", 3000)))
	mustRun(t, bot, adminCaller, command("create_player", stringOpt("name", "Ana Costa"), numberOpt("value", 900), stringOpt("club", "Rovers")))
	mustRun(t, bot, adminCaller, command("create_player", stringOpt("name", "Jo Park"), numberOpt("value", 300)))
	mustRun(t, bot, adminCaller, scheduleCommand("Rovers", "United", botNow.Add(time.Hour)))
	bot.background.Wait()

	embed := mustRun(t, bot, memberCaller, command("league_stats")).Embeds[0]
	want := map[string]string{
		"Clubs":                "2",
		"Players":              "2 (1 free agents)",
		"Matches":              "1 (1 upcoming)",
		"Transfers":            "0",
		"Total money":          "€3,000.00",
		"Average money":        "€1,500.00",
		"Total player value":   "€1,200.00",
		"Average player value": "€600.00",
	}
	for name, value := range want {
		if got := field(t, embed, name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}

	bot.clock.(*clockwork.FakeClock).Advance(90 * time.Minute)
	if reply := run(bot, memberCaller, command("info_bot")); !isError(reply) {
		t.Errorf("info_bot is restricted to administrators")
	}
	embed = mustRun(t, bot, adminCaller, command("info_bot")).Embeds[0]
	if uptime := field(t, embed, "Uptime"); uptime != "1h30m0s" {
		t.Errorf("uptime = %q", uptime)
	}
	if commands := field(t, embed, "Commands"); commands != fmt.Sprint(len(Commands())) {
		t.Errorf("commands = %q", commands)
	}
	// The match started while the clock moved on
	if matches := field(t, embed, "Matches"); matches != "1 (0 upcoming)" {
		t.Errorf("matches = %q", matches)
	}
}

func TestMyMatchesCoversEveryOwnedClub(t *testing.T) {
	bot, _, _ := setupTestBot(t)
	createClubs(t, bot)
	mustRun(t, bot, adminCaller, command("create_club", stringOpt("name", "Athletic"), userOpt("owner", "100")))

	mustRun(t, bot, adminCaller, scheduleCommand("Rovers", "Athletic", botNow.Add(3*time.Hour)))
	mustRun(t, bot, adminCaller, scheduleCommand("Athletic", "United", botNow.Add(2*time.Hour)))
	mustRun(t, bot, adminCaller, scheduleCommand("United", "Rovers", botNow.Add(time.Hour)))
	bot.background.Wait()

	embed := mustRun(t, bot, memberCaller, command("my_matches")).Embeds[0]
	if embed.Title != "Your Upcoming Matches" {
		t.Errorf("title = %q", embed.Title)
	}
	// The derby between two owned clubs is listed once
	if n := strings.Count(embed.Description, "\n\n"); n != 3 {
		t.Errorf("expected 3 matches, got %d in %q", n, embed.Description)
	}
	order := []string{"1. **United** vs Rovers", "2. Athletic vs **United**", "3. Rovers vs Athletic"}
	last := -1
	for _, line := range order {
		at := strings.Index(embed.Description, line)
		if at <= last {
			t.Fatalf("%q missing or out of order in %q", line, embed.Description)
		}
		last = at
	}

	embed = mustRun(t, bot, Caller{Id: "200"}, command("my_matches")).Embeds[0]
	if embed.Title != "United - Upcoming Matches" || strings.Count(embed.Description, "\n\n") != 2 {
		t.Errorf("unexpected reply for the owner of one club %+v", embed)
	}
}

type stubRecipients struct {
	users map[league.ClubId][]league.UserId
	err   error
}

func (s *stubRecipients) ClubRecipients(ctx context.Context, club league.Club) ([]league.UserId, error) {
	if users, ok := s.users[club.Id]; ok {
		return users, nil
	}
	return nil, s.err
}

func TestScheduleMatchTellsRoleMembers(t *testing.T) {
	bot, db, notifier := setupTestBot(t)
	createClubs(t, bot)
	ctx := context.Background()
	rovers, _ := db.GetClubByName(ctx, "Rovers")

	bot.SetRecipients(&stubRecipients{
		users: map[league.ClubId][]league.UserId{rovers.Id: {"300", "400", "100"}},
		err:   errors.New("missing access"),
	})
	mustRun(t, bot, adminCaller, scheduleCommand("Rovers", "United", botNow.Add(time.Hour)))
	bot.background.Wait()

	users := []league.UserId{}
	for _, d := range notifier.deliveries {
		users = append(users, d.user)
	}
	// United cannot be resolved so its owner is told instead
	if !slices.Equal(users, []league.UserId{"300", "400", "100", "200"}) {
		t.Errorf("notified %v", users)
	}
}
