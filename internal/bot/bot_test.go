package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"leaguebot/internal/league"
	"leaguebot/internal/reminder"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
)

var botNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

var adminCaller = Caller{Id: "1", Admin: true}
var memberCaller = Caller{Id: "100"}

type delivery struct {
	user   league.UserId
	notice league.Notice
}

type recordingNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (n *recordingNotifier) SendDirectMessage(ctx context.Context, user league.UserId, notice league.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, delivery{user: user, notice: notice})
	return nil
}

type fakeChecker struct {
	ids []league.MatchId
	err error
	at  time.Time
}

func (c *fakeChecker) CheckUpcoming(ctx context.Context, now time.Time) ([]league.MatchId, error) {
	c.at = now
	return c.ids, c.err
}

func setupTestBot(t *testing.T) (*Bot, *league.DatabaseLeague, *recordingNotifier) {
	t.Helper()
	db, err := league.CreateDatabaseLeague(":memory:")
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bot, err := CreateBot("test-token", "", db, time.UTC, clockwork.NewFakeClockAt(botNow))
	if err != nil {
		t.Fatalf("could not create bot: %v", err)
	}
	notifier := &recordingNotifier{}
	bot.SetNotifier(notifier)
	return bot, db, notifier
}

func run(bot *Bot, caller Caller, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionResponseData {
	return interactionData(bot.Execute(caller, Parse(data, time.UTC)))
}

func isError(data *discordgo.InteractionResponseData) bool {
	return data.Flags&discordgo.MessageFlagsEphemeral != 0
}

func scheduleCommand(home string, away string, start time.Time) discordgo.ApplicationCommandInteractionData {
	opts := append([]*discordgo.ApplicationCommandInteractionDataOption{stringOpt("home", home), stringOpt("away", away)},
		dateOpts(int64(start.Year()), int64(start.Month()), int64(start.Day()), int64(start.Hour()), int64(start.Minute()))...)
	return command("schedule_match", opts...)
}

func createClubs(t *testing.T, bot *Bot) {
	t.Helper()
	for _, data := range []discordgo.ApplicationCommandInteractionData{
		command("create_club", stringOpt("name", "Rovers"), userOpt("owner", "100")),
		command("create_club", stringOpt("name", "United"), userOpt("owner", "200")),
	} {
		if reply := run(bot, adminCaller, data); isError(reply) {
			t.Fatalf("could not create club: %s", reply.Embeds[0].Description)
		}
	}
}

func TestAdminCommandsRejectMembers(t *testing.T) {
	bot, db, _ := setupTestBot(t)

	reply := run(bot, memberCaller, command("create_club", stringOpt("name", "Rovers"), userOpt("owner", "100")))
	if !isError(reply) || reply.Embeds[0].Description != "This command is restricted to administrators only." {
		t.Fatalf("expected admin rejection, got %+v", reply)
	}
	clubs, err := db.ListClubs(context.Background())
	if err != nil || len(clubs) != 0 {
		t.Errorf("no club should exist, got %v (%v)", clubs, err)
	}
}

func TestCreateClubTwice(t *testing.T) {
	bot, _, _ := setupTestBot(t)
	createClubs(t, bot)

	reply := run(bot, adminCaller, command("create_club", stringOpt("name", "Rovers"), userOpt("owner", "300")))
	if !isError(reply) || reply.Embeds[0].Description != "Club `Rovers` already exists" {
		t.Errorf("expected duplicate error, got %+v", reply)
	}
}

func TestScheduleMatchTellsOwners(t *testing.T) {
	bot, db, notifier := setupTestBot(t)
	createClubs(t, bot)

	start := botNow.Add(48 * time.Hour)
	reply := run(bot, adminCaller, scheduleCommand("Rovers", "United", start))
	if isError(reply) {
		t.Fatalf("unexpected error: %s", reply.Embeds[0].Description)
	}
	if reply.Embeds[0].Title != "Match Scheduled" {
		t.Errorf("title = %q", reply.Embeds[0].Title)
	}

	matches, err := db.UpcomingMatches(context.Background(), botNow, botNow.Add(72*time.Hour))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one match, got %v (%v)", matches, err)
	}
	if !matches[0].Start.Equal(start) || matches[0].ReminderSent {
		t.Errorf("unexpected match %+v", matches[0])
	}

	bot.background.Wait()
	if len(notifier.deliveries) != 2 {
		t.Fatalf("expected both owners to be told, got %d messages", len(notifier.deliveries))
	}
	for _, d := range notifier.deliveries {
		if d.notice.Kind != league.NoticeScheduled || d.notice.Match.Id != matches[0].Id {
			t.Errorf("unexpected notice %+v", d.notice)
		}
	}
}

func TestScheduleMatchRejections(t *testing.T) {
	bot, db, notifier := setupTestBot(t)
	createClubs(t, bot)

	tests := []struct {
		name string
		data discordgo.ApplicationCommandInteractionData
		want string
	}{
		{"in the past", scheduleCommand("Rovers", "United", botNow.Add(-time.Hour)), "Match time must be in the future!"},
		{"right now", scheduleCommand("Rovers", "United", botNow), "Match time must be in the future!"},
		{"same club", scheduleCommand("Rovers", "Rovers", botNow.Add(time.Hour)), "A team cannot play against itself!"},
		{"unknown club", scheduleCommand("Rovers", "City", botNow.Add(time.Hour)), "Club `City` not found!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := run(bot, adminCaller, tt.data)
			if !isError(reply) || reply.Embeds[0].Description != tt.want {
				t.Errorf("expected %q, got %+v", tt.want, reply)
			}
		})
	}

	matches, _ := db.UpcomingMatches(context.Background(), botNow.Add(-24*time.Hour), botNow.Add(24*time.Hour))
	if len(matches) != 0 {
		t.Errorf("no match should have been created, got %v", matches)
	}
	bot.background.Wait()
	if len(notifier.deliveries) != 0 {
		t.Errorf("nobody should have been told, got %d messages", len(notifier.deliveries))
	}
}

func TestRescheduleAndCancelMatch(t *testing.T) {
	bot, db, _ := setupTestBot(t)
	createClubs(t, bot)
	ctx := context.Background()

	run(bot, adminCaller, scheduleCommand("Rovers", "United", botNow.Add(time.Hour)))
	matches, _ := db.UpcomingMatches(ctx, botNow, botNow.Add(2*time.Hour))
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %v", matches)
	}
	id := matches[0].Id
	if _, err := db.MarkReminderSent(ctx, id); err != nil {
		t.Fatalf("could not mark match: %v", err)
	}

	later := botNow.Add(5 * time.Hour)
	opts := append([]*discordgo.ApplicationCommandInteractionDataOption{intOpt("match_id", int64(id))},
		dateOpts(int64(later.Year()), int64(later.Month()), int64(later.Day()), int64(later.Hour()), int64(later.Minute()))...)
	reply := run(bot, adminCaller, command("reschedule_match", opts...))
	if isError(reply) || reply.Embeds[0].Title != "Match Rescheduled" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	match, err := db.GetMatch(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !match.Start.Equal(later) || match.ReminderSent {
		t.Errorf("match should be moved with its reminder pending, got %+v", match)
	}

	if reply := run(bot, adminCaller, command("cancel_match", intOpt("match_id", int64(id)))); isError(reply) {
		t.Fatalf("unexpected error %s", reply.Embeds[0].Description)
	}
	if _, err := db.GetMatch(ctx, id); !errors.Is(err, league.ErrNotFound) {
		t.Errorf("match should be gone, got %v", err)
	}
	reply = run(bot, adminCaller, command("cancel_match", intOpt("match_id", int64(id))))
	if !isError(reply) {
		t.Errorf("cancelling twice should fail")
	}
}

func TestMyMatches(t *testing.T) {
	bot, _, _ := setupTestBot(t)
	createClubs(t, bot)

	reply := run(bot, Caller{Id: "999"}, command("my_matches"))
	if !isError(reply) || reply.Embeds[0].Description != "You don't own a club!" {
		t.Errorf("expected not owner error, got %+v", reply)
	}

	reply = run(bot, memberCaller, command("my_matches"))
	if !isError(reply) || reply.Embeds[0].Description != "You have no upcoming matches!" {
		t.Errorf("expected no matches, got %+v", reply)
	}

	run(bot, adminCaller, scheduleCommand("United", "Rovers", botNow.Add(time.Hour)))
	reply = run(bot, memberCaller, command("my_matches"))
	if isError(reply) || reply.Embeds[0].Title != "Rovers - Upcoming Matches" {
		t.Errorf("unexpected reply %+v", reply)
	}
}

func TestUpcomingMatchesHonoursDays(t *testing.T) {
	bot, _, _ := setupTestBot(t)
	createClubs(t, bot)

	run(bot, adminCaller, scheduleCommand("Rovers", "United", botNow.Add(3*24*time.Hour)))

	reply := run(bot, memberCaller, command("upcoming_matches", intOpt("days", 2)))
	if !isError(reply) {
		t.Errorf("match in 3 days should not be listed for 2 days, got %+v", reply)
	}
	reply = run(bot, memberCaller, command("upcoming_matches"))
	if isError(reply) || reply.Embeds[0].Title != "Upcoming Matches (7 days)" {
		t.Errorf("unexpected reply %+v", reply)
	}
}

func TestCheckReminders(t *testing.T) {
	bot, _, _ := setupTestBot(t)

	reply := run(bot, adminCaller, command("check_reminders"))
	if !isError(reply) {
		t.Errorf("without a scheduler the check should fail, got %+v", reply)
	}

	checker := &fakeChecker{ids: []league.MatchId{3, 5}}
	bot.SetReminders(checker)
	reply = run(bot, adminCaller, command("check_reminders"))
	if isError(reply) || reply.Content != "Sent reminders for 2 match(es): #3, #5" {
		t.Errorf("unexpected reply %+v", reply)
	}
	if !checker.at.Equal(botNow) {
		t.Errorf("check ran at %v, want %v", checker.at, botNow)
	}

	checker.ids, checker.err = []league.MatchId{3}, fmt.Errorf("%w: 2 matches left for the next tick", reminder.ErrTickExpired)
	reply = run(bot, adminCaller, command("check_reminders"))
	want := "Sent reminders for 1 match(es) before running out of time: #3. The next automatic check will remind the others."
	if isError(reply) || reply.Content != want {
		t.Errorf("a partial check should tell what was sent, got %+v", reply)
	}

	checker.ids, checker.err = nil, errors.New("database is locked")
	reply = run(bot, adminCaller, command("check_reminders"))
	if !isError(reply) {
		t.Errorf("a failing check should be reported, got %+v", reply)
	}
}

func TestResetLeague(t *testing.T) {
	bot, db, _ := setupTestBot(t)
	createClubs(t, bot)

	if reply := run(bot, memberCaller, command("reset_league")); !isError(reply) {
		t.Fatalf("members cannot reset the league")
	}
	if reply := run(bot, adminCaller, command("reset_league")); isError(reply) {
		t.Fatalf("unexpected error %s", reply.Embeds[0].Description)
	}
	clubs, err := db.ListClubs(context.Background())
	if err != nil || len(clubs) != 0 {
		t.Errorf("league should be empty, got %v (%v)", clubs, err)
	}
}

func TestInvalidInputIsReported(t *testing.T) {
	bot, _, _ := setupTestBot(t)
	reply := run(bot, adminCaller, command("upcoming_matches", intOpt("days", 40)))
	if !isError(reply) || reply.Embeds[0].Description != "Input not valid: Days must be between 1 and 30" {
		t.Errorf("unexpected reply %+v", reply)
	}
}

func TestCallerOf(t *testing.T) {
	guild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "7"}, Permissions: discordgo.PermissionAdministrator | discordgo.PermissionSendMessages},
	}}
	if caller := callerOf(guild); caller.Id != "7" || !caller.Admin {
		t.Errorf("unexpected caller %+v", caller)
	}

	member := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "8"}, Permissions: discordgo.PermissionSendMessages},
	}}
	if caller := callerOf(member); caller.Id != "8" || caller.Admin {
		t.Errorf("unexpected caller %+v", caller)
	}

	direct := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "9"}}}
	if caller := callerOf(direct); caller.Id != "9" || caller.Admin {
		t.Errorf("direct messages never carry admin rights, got %+v", caller)
	}
}
