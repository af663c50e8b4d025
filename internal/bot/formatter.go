package bot

import (
	"fmt"
	"math"
	"strings"
	"time"

	"leaguebot/internal/league"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Use "teal" color for the bot
const color int = 0x008080
const colorReminder int = 0xe67e22
const colorSuccess int = 0x2ecc71
const colorError int = 0xe74c3c

// Discord renders these in the local time of whoever reads them
func fullTime(t time.Time) string {
	return fmt.Sprintf("<t:%d:F>", t.Unix())
}

func relativeTime(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func clubName(clubs map[league.ClubId]league.Club, id league.ClubId) string {
	if club, ok := clubs[id]; ok {
		return club.Name
	}
	return fmt.Sprintf("club #%d", id)
}

func InputNotValid(errorMessage string) []Response {
	return []Response{ResponseError{fmt.Sprintf("Input not valid: %s", errorMessage)}}
}

func AdminOnly() []Response {
	return []Response{ResponseError{"This command is restricted to administrators only."}}
}

func InternalError() []Response {
	return []Response{ResponseError{"An error occurred while executing the command."}}
}

func ClubNotFound(name string) []Response {
	return []Response{ResponseError{fmt.Sprintf("Club `%s` not found!", name)}}
}

func ClubAlreadyExists(name string) []Response {
	return []Response{ResponseError{fmt.Sprintf("Club `%s` already exists", name)}}
}

func ClubCreated(club league.Club) []Response {
	embed := discordgo.MessageEmbed{
		Title:       "Club created",
		Description: fmt.Sprintf("**%s** now belongs to <@%s>", club.Name, club.Owner),
		Color:       colorSuccess,
	}
	return []Response{ResponseEmbed{embed}}
}

func ClubDeleted(name string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Club `%s` with its matches and transfers has been deleted, its players are now free agents", name)}}
}

func NotClubOwner() []Response {
	return []Response{ResponseError{"You don't own a club!"}}
}

func SameClub() []Response {
	return []Response{ResponseError{"A team cannot play against itself!"}}
}

func MatchInPast() []Response {
	return []Response{ResponseError{"Match time must be in the future!"}}
}

func MatchNotFound(id league.MatchId) []Response {
	return []Response{ResponseError{fmt.Sprintf("Match #%d not found", id)}}
}

func matchEmbed(title string, match league.ScheduledMatch, home string, away string, embedColor int) discordgo.MessageEmbed {
	embed := discordgo.MessageEmbed{Title: title, Color: embedColor}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "Teams",
		Value:  fmt.Sprintf("%s vs %s", home, away),
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "Time",
		Value:  fmt.Sprintf("%s (%s)", fullTime(match.Start), relativeTime(match.Start)),
		Inline: false,
	})
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Match #%d", match.Id)}
	return embed
}

func MatchScheduled(match league.ScheduledMatch, home league.Club, away league.Club) []Response {
	return []Response{ResponseEmbed{matchEmbed("Match Scheduled", match, home.Name, away.Name, colorSuccess)}}
}

func MatchRescheduled(match league.ScheduledMatch, home league.Club, away league.Club) []Response {
	return []Response{ResponseEmbed{matchEmbed("Match Rescheduled", match, home.Name, away.Name, color)}}
}

func MatchCancelled(id league.MatchId) []Response {
	return []Response{ResponseString{fmt.Sprintf("Match #%d has been cancelled", id)}}
}

func UpcomingMatches(matches []league.ScheduledMatch, clubs map[league.ClubId]league.Club, days int) []Response {
	if len(matches) == 0 {
		return []Response{ResponseError{fmt.Sprintf("No matches scheduled in the next %d days!", days)}}
	}
	embed := discordgo.MessageEmbed{Title: fmt.Sprintf("Upcoming Matches (%d days)", days), Color: color}
	var description strings.Builder
	for index, match := range matches {
		fmt.Fprintf(&description, "%d. **%s vs %s** (#%d)\n", index+1, clubName(clubs, match.Home), clubName(clubs, match.Away), match.Id)
		fmt.Fprintf(&description, "   %s, %s\n\n", fullTime(match.Start), relativeTime(match.Start))
	}
	embed.Description = description.String()
	return []Response{ResponseEmbed{embed}}
}

func ClubMatches(owned []league.Club, matches []league.ScheduledMatch, clubs map[league.ClubId]league.Club) []Response {
	if len(matches) == 0 {
		return []Response{ResponseError{"You have no upcoming matches!"}}
	}
	title := "Your Upcoming Matches"
	if len(owned) == 1 {
		title = fmt.Sprintf("%s - Upcoming Matches", owned[0].Name)
	}
	mine := map[league.ClubId]bool{}
	for _, club := range owned {
		mine[club.Id] = true
	}
	embed := discordgo.MessageEmbed{Title: title, Color: colorSuccess}
	var description strings.Builder
	for index, match := range matches {
		// Highlight the opponent
		home, away := clubName(clubs, match.Home), clubName(clubs, match.Away)
		var versus string
		switch {
		case mine[match.Home] && mine[match.Away]:
			versus = fmt.Sprintf("%s vs %s", home, away)
		case mine[match.Home]:
			versus = fmt.Sprintf("%s vs **%s**", home, away)
		default:
			versus = fmt.Sprintf("**%s** vs %s", home, away)
		}
		fmt.Fprintf(&description, "%d. %s\n   %s, %s\n\n", index+1, versus, fullTime(match.Start), relativeTime(match.Start))
	}
	embed.Description = description.String()
	return []Response{ResponseEmbed{embed}}
}

func matchList(ids []league.MatchId) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(names, ", ")
}

func RemindersChecked(ids []league.MatchId) []Response {
	if len(ids) == 0 {
		return []Response{ResponseString{"No match reminders were due"}}
	}
	return []Response{ResponseString{fmt.Sprintf("Sent reminders for %d match(es): %s", len(ids), matchList(ids))}}
}

// The check stopped before every due match got its reminder
func RemindersExpired(ids []league.MatchId) []Response {
	text := "The reminder check ran out of time before sending any reminder"
	if len(ids) > 0 {
		text = fmt.Sprintf("Sent reminders for %d match(es) before running out of time: %s", len(ids), matchList(ids))
	}
	return []Response{ResponseString{text + ". The next automatic check will remind the others."}}
}

func RemindersFailed() []Response {
	return []Response{ResponseError{"Could not check match reminders, the database is unavailable. The next automatic check will retry."}}
}

func LeagueReset() []Response {
	return []Response{ResponseString{"All clubs, players, transfers and matches have been deleted"}}
}

func HelpMessage() []Response {

	embed := discordgo.MessageEmbed{Title: "Commands available", Color: color}
	for _, command := range Commands() {
		name := fmt.Sprintf("`/%s`", command.Name)
		if command.DefaultMemberPermissions != nil {
			name += " (admin)"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   name,
			Value:  command.Description,
			Inline: false,
		})
	}
	return []Response{ResponseEmbed{embed}}
}

// Embed sent in a direct message to a club owner
func NoticeEmbed(notice league.Notice) *discordgo.MessageEmbed {
	var embed discordgo.MessageEmbed
	switch notice.Kind {
	case league.NoticeReminder:
		minutes := int(math.Ceil(notice.StartsIn.Minutes()))
		embed = matchEmbed("Match Reminder", notice.Match, notice.Home.Name, notice.Away.Name, colorReminder)
		if minutes <= 0 {
			embed.Description = "Your match is starting now!"
		} else if minutes == 1 {
			embed.Description = "Your match is starting in 1 minute!"
		} else {
			embed.Description = fmt.Sprintf("Your match is starting in %d minutes!", minutes)
		}
	case league.NoticeScheduled:
		embed = matchEmbed("You have a scheduled match!", notice.Match, notice.Home.Name, notice.Away.Name, color)
	default:
		panic(fmt.Sprintf("notice kind %d is not one of the possible ones", notice.Kind))
	}
	return &embed
}

// Amounts are shown in euros with thousands separators
var moneyPrinter = message.NewPrinter(language.English)

func formatMoney(amount float64) string {
	return moneyPrinter.Sprintf("€%.2f", amount)
}

func playerName(players map[league.PlayerId]string, id league.PlayerId) string {
	if name, ok := players[id]; ok {
		return name
	}
	return fmt.Sprintf("player #%d", id)
}

func inlineField(name string, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}

func ClubList(clubs []league.Club) []Response {
	if len(clubs) == 0 {
		return []Response{ResponseError{"No clubs registered yet!"}}
	}
	embed := discordgo.MessageEmbed{Title: fmt.Sprintf("Clubs (%d)", len(clubs)), Color: color}
	var description strings.Builder
	for index, club := range clubs {
		fmt.Fprintf(&description, "%d. **%s**, owned by <@%s>\n", index+1, club.Name, club.Owner)
	}
	embed.Description = description.String()
	return []Response{ResponseEmbed{embed}}
}

// Details of a club with the first players of its squad, most valuable first
func ClubInfo(club league.Club, players []league.Player, preview int) []Response {
	embed := discordgo.MessageEmbed{Title: club.Name, Color: color}
	role := "None"
	if club.RoleId != "" {
		role = fmt.Sprintf("<@&%s>", club.RoleId)
	}
	var value float64
	for _, player := range players {
		value += player.Value
	}
	embed.Fields = append(embed.Fields,
		inlineField("Owner", fmt.Sprintf("<@%s>", club.Owner)),
		inlineField("Money", formatMoney(club.Money)),
		inlineField("Role", role),
		inlineField("Players", fmt.Sprintf("%d", len(players))),
		inlineField("Squad value", formatMoney(value)),
	)
	if len(players) > 0 {
		var squad strings.Builder
		for _, player := range players[:min(preview, len(players))] {
			fmt.Fprintf(&squad, "**%s**", player.Name)
			if player.Position != "" {
				fmt.Fprintf(&squad, " (%s)", player.Position)
			}
			fmt.Fprintf(&squad, ", %s\n", formatMoney(player.Value))
		}
		if len(players) > preview {
			fmt.Fprintf(&squad, "and %d more", len(players)-preview)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Top players", Value: squad.String()})
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Club #%d", club.Id)}
	return []Response{ResponseEmbed{embed}}
}

func ClubMoneySet(name string, amount float64) []Response {
	return []Response{ResponseString{fmt.Sprintf("Money of `%s` set to %s", name, formatMoney(amount))}}
}

// An empty role means the club went back to notifying its owner
func ClubRoleSet(name string, role string) []Response {
	if role == "" {
		return []Response{ResponseString{fmt.Sprintf("Club `%s` has no role anymore, its owner gets the match notices", name)}}
	}
	return []Response{ResponseString{fmt.Sprintf("Members of <@&%s> now get the match notices of `%s`", role, name)}}
}

func RichestClubs(clubs []league.Club) []Response {
	if len(clubs) == 0 {
		return []Response{ResponseError{"No clubs registered yet!"}}
	}
	embed := discordgo.MessageEmbed{Title: "Richest Clubs", Color: colorSuccess}
	var description strings.Builder
	for index, club := range clubs {
		fmt.Fprintf(&description, "%d. **%s**: %s\n", index+1, club.Name, formatMoney(club.Money))
	}
	embed.Description = description.String()
	return []Response{ResponseEmbed{embed}}
}

func PlayerExists(name string) []Response {
	return []Response{ResponseError{fmt.Sprintf("Player `%s` already exists", name)}}
}

func PlayerNotFound(name string) []Response {
	return []Response{ResponseError{fmt.Sprintf("Player `%s` not found!", name)}}
}

// An empty club name means the player is a free agent
func PlayerCreated(player league.Player, club string) []Response {
	embed := discordgo.MessageEmbed{Title: "Player created", Color: colorSuccess}
	if club == "" {
		embed.Description = fmt.Sprintf("**%s** is a free agent", player.Name)
	} else {
		embed.Description = fmt.Sprintf("**%s** joined **%s**", player.Name, club)
	}
	embed.Fields = append(embed.Fields, inlineField("Value", formatMoney(player.Value)))
	return []Response{ResponseEmbed{embed}}
}

func PlayerInfo(player league.Player, club string, transfers int) []Response {
	embed := discordgo.MessageEmbed{Title: player.Name, Color: color}
	if club == "" {
		club = "Free agent"
	}
	embed.Fields = append(embed.Fields, inlineField("Club", club), inlineField("Value", formatMoney(player.Value)))
	if player.Position != "" {
		embed.Fields = append(embed.Fields, inlineField("Position", player.Position))
	}
	if player.Age != 0 {
		embed.Fields = append(embed.Fields, inlineField("Age", fmt.Sprintf("%d", player.Age)))
	}
	embed.Fields = append(embed.Fields, inlineField("Transfers", fmt.Sprintf("%d", transfers)))
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Player #%d", player.Id)}
	return []Response{ResponseEmbed{embed}}
}

// An empty seller means the player was a free agent
func PlayerTransferred(player string, from string, to string, fee float64) []Response {
	embed := discordgo.MessageEmbed{Title: "Transfer completed", Color: colorSuccess}
	if from == "" {
		embed.Description = fmt.Sprintf("**%s** signed for **%s** as a free agent", player, to)
	} else {
		embed.Description = fmt.Sprintf("**%s** moved from **%s** to **%s**", player, from, to)
	}
	embed.Fields = append(embed.Fields, inlineField("Fee", formatMoney(fee)))
	return []Response{ResponseEmbed{embed}}
}

func AlreadyInClub(player string, club string) []Response {
	return []Response{ResponseError{fmt.Sprintf("`%s` already plays for `%s`", player, club)}}
}

func InsufficientFunds(club string, fee float64) []Response {
	return []Response{ResponseError{fmt.Sprintf("`%s` cannot afford a fee of %s", club, formatMoney(fee))}}
}

func FreeAgents(players []league.Player) []Response {
	if len(players) == 0 {
		return []Response{ResponseError{"There are no free agents!"}}
	}
	embed := discordgo.MessageEmbed{Title: fmt.Sprintf("Free Agents (%d)", len(players)), Color: color}
	var description strings.Builder
	for index, player := range players {
		fmt.Fprintf(&description, "%d. **%s**", index+1, player.Name)
		if player.Position != "" {
			fmt.Fprintf(&description, " (%s)", player.Position)
		}
		fmt.Fprintf(&description, ", %s\n", formatMoney(player.Value))
	}
	embed.Description = description.String()
	return []Response{ResponseEmbed{embed}}
}

func TopPlayers(players []league.Player, clubs map[league.ClubId]league.Club) []Response {
	if len(players) == 0 {
		return []Response{ResponseError{"No players registered yet!"}}
	}
	embed := discordgo.MessageEmbed{Title: "Most Valuable Players", Color: colorSuccess}
	var description strings.Builder
	for index, player := range players {
		team := "free agent"
		if !player.FreeAgent() {
			team = clubName(clubs, player.Club)
		}
		fmt.Fprintf(&description, "%d. **%s** (%s): %s\n", index+1, player.Name, team, formatMoney(player.Value))
	}
	embed.Description = description.String()
	return []Response{ResponseEmbed{embed}}
}

func RecentTransfers(transfers []league.Transfer, players map[league.PlayerId]string, clubs map[league.ClubId]league.Club) []Response {
	if len(transfers) == 0 {
		return []Response{ResponseError{"No transfers yet!"}}
	}
	embed := discordgo.MessageEmbed{Title: "Recent Transfers", Color: color}
	var description strings.Builder
	for index, transfer := range transfers {
		from := "free agency"
		if transfer.From != 0 {
			from = clubName(clubs, transfer.From)
		}
		fmt.Fprintf(&description, "%d. **%s**: %s to %s for %s\n   %s\n", index+1,
			playerName(players, transfer.Player), from, clubName(clubs, transfer.To), formatMoney(transfer.Fee), relativeTime(transfer.Date))
	}
	embed.Description = description.String()
	return []Response{ResponseEmbed{embed}}
}

func summaryFields(summary league.Summary) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		inlineField("Clubs", fmt.Sprintf("%d", summary.Clubs)),
		inlineField("Players", fmt.Sprintf("%d (%d free agents)", summary.Players, summary.FreeAgents)),
		inlineField("Matches", fmt.Sprintf("%d (%d upcoming)", summary.Matches, summary.UpcomingMatches)),
	}
}

func LeagueStats(summary league.Summary) []Response {
	embed := discordgo.MessageEmbed{Title: "League Statistics", Color: color}
	embed.Fields = summaryFields(summary)
	embed.Fields = append(embed.Fields,
		inlineField("Transfers", fmt.Sprintf("%d", summary.Transfers)),
		inlineField("Total money", formatMoney(summary.TotalMoney)),
		inlineField("Average money", formatMoney(summary.AverageMoney)),
		inlineField("Total player value", formatMoney(summary.TotalValue)),
		inlineField("Average player value", formatMoney(summary.AverageValue)),
	)
	return []Response{ResponseEmbed{embed}}
}

func BotInfo(summary league.Summary, uptime time.Duration) []Response {
	embed := discordgo.MessageEmbed{
		Title:       "Football League Bot",
		Description: "Manages the clubs, players, transfers and matches of the league, and reminds the clubs before their matches start.",
		Color:       color,
	}
	embed.Fields = summaryFields(summary)
	embed.Fields = append(embed.Fields,
		inlineField("Commands", fmt.Sprintf("%d", len(Commands()))),
		inlineField("Uptime", uptime.Truncate(time.Second).String()),
	)
	return []Response{ResponseEmbed{embed}}
}
