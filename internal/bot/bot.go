package bot

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"leaguebot/internal/league"
	"leaguebot/internal/reminder"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const commandTimeout = 10 * time.Second
const noticeTimeout = 30 * time.Second

// Runs the reminder check on demand
type ReminderChecker interface {
	CheckUpcoming(ctx context.Context, now time.Time) ([]league.MatchId, error)
}

type Notifier interface {
	SendDirectMessage(ctx context.Context, user league.UserId, notice league.Notice) error
}

// Who ran a command
type Caller struct {
	Id    league.UserId
	Admin bool
}

type Bot struct {
	token      string
	guildId    string // Commands are registered globally if empty
	session    *discordgo.Session
	database   DatabaseBot
	reminders  ReminderChecker
	notifier   Notifier
	recipients reminder.Recipients
	clock      clockwork.Clock
	location   *time.Location
	started    time.Time
	// Direct messages sent in the background after a command
	background sync.WaitGroup
}

func CreateBot(token string, guildId string, database DatabaseBot, location *time.Location, clock clockwork.Clock) (*Bot, error) {

	bot := &Bot{
		token:      token,
		guildId:    guildId,
		database:   database,
		recipients: reminder.OwnerRecipients{},
		clock:      clock,
		location:   location,
	}
	if bot.location == nil {
		bot.location = time.UTC
	}
	if bot.clock == nil {
		bot.clock = clockwork.NewRealClock()
	}
	bot.started = bot.clock.Now()

	// Create session
	discord, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("could not create discord session: %w", err)
	}
	// Listing the members of club roles needs the privileged members intent
	discord.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsDirectMessages

	// Event handlers
	discord.AddHandler(bot.ready)
	discord.AddHandler(bot.Receive)
	bot.session = discord

	return bot, nil
}

func (bot *Bot) Session() *discordgo.Session {
	return bot.session
}

func (bot *Bot) SetReminders(reminders ReminderChecker) {
	bot.reminders = reminders
}

func (bot *Bot) SetNotifier(notifier Notifier) {
	bot.notifier = notifier
}

func (bot *Bot) SetRecipients(recipients reminder.Recipients) {
	bot.recipients = recipients
}

// Connect to Discord and register the slash commands
func (bot *Bot) Open() error {
	if err := bot.session.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	registered, err := bot.session.ApplicationCommandBulkOverwrite(bot.session.State.User.ID, bot.guildId, Commands())
	if err != nil {
		return fmt.Errorf("could not register commands: %w", err)
	}
	log.Info().Int("commands", len(registered)).Str("guild_id", bot.guildId).Msg("Registered slash commands")
	return nil
}

// Wait for pending direct messages and disconnect
func (bot *Bot) Close() error {
	bot.background.Wait()
	return bot.session.Close()
}

func (bot *Bot) ready(discord *discordgo.Session, ready *discordgo.Ready) {
	log.Info().Str("user", ready.User.String()).Int("guilds", len(ready.Guilds)).Msg("Connected to Discord")
	if err := discord.UpdateWatchStatus(0, "football clubs"); err != nil {
		log.Warn().Err(err).Msg("Could not update the status of the bot")
	}
}

func callerOf(interaction *discordgo.InteractionCreate) Caller {
	// Member is only present in guilds, User only in direct messages
	if interaction.Member != nil && interaction.Member.User != nil {
		return Caller{
			Id:    league.UserId(interaction.Member.User.ID),
			Admin: interaction.Member.Permissions&discordgo.PermissionAdministrator != 0,
		}
	}
	if interaction.User != nil {
		return Caller{Id: league.UserId(interaction.User.ID)}
	}
	return Caller{}
}

func (bot *Bot) Receive(discord *discordgo.Session, interaction *discordgo.InteractionCreate) {

	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := interaction.ApplicationCommandData()
	caller := callerOf(interaction)
	logger := log.With().Str("command", data.Name).Str("user_id", string(caller.Id)).Logger()

	parseResult := Parse(data, bot.location)
	logger.Debug().Int("parseid", parseResult.parseid).Msg("Received command")

	// The reminder check may take longer than Discord waits for an answer
	if parseResult.parseid == PARSEID_OK && parseResult.command == COMMAND_CHECK_REMINDERS {
		err := discord.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Could not defer response")
			return
		}
		reply := interactionData(bot.Execute(caller, parseResult))
		_, err = discord.FollowupMessageCreate(interaction.Interaction, true, &discordgo.WebhookParams{
			Content: reply.Content,
			Embeds:  reply.Embeds,
			Flags:   reply.Flags,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Could not send follow up response")
		}
		return
	}

	reply := interactionData(bot.Execute(caller, parseResult))
	err := discord.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: reply,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Could not respond to command")
	}
}

// Run a parsed command on behalf of the caller
func (bot *Bot) Execute(caller Caller, parseResult ParseResult) []Response {

	if parseResult.parseid != PARSEID_OK {
		// The command is invalid input, so it contains an error message
		log.Info().Str("reason", parseResult.errorMessage).Msg("Wrong input")
		return InputNotValid(parseResult.errorMessage)
	}
	if adminCommands[parseResult.command] && !caller.Admin {
		log.Info().Str("user_id", string(caller.Id)).Str("command", commandNames[parseResult.command]).Msg("Rejecting admin command")
		return AdminOnly()
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch parseResult.command {
	case COMMAND_CREATE_CLUB:
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of club arguments %T", args))
		case ClubArguments:
			return bot.createClub(ctx, args)
		}
	case COMMAND_DELETE_CLUB:
		switch name := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of club name %T", name))
		case string:
			return bot.deleteClub(ctx, name)
		}
	case COMMAND_SCHEDULE_MATCH:
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of schedule arguments %T", args))
		case ScheduleArguments:
			return bot.scheduleMatch(ctx, args)
		}
	case COMMAND_RESCHEDULE_MATCH:
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of reschedule arguments %T", args))
		case RescheduleArguments:
			return bot.rescheduleMatch(ctx, args)
		}
	case COMMAND_CANCEL_MATCH:
		switch id := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of match id %T", id))
		case league.MatchId:
			return bot.cancelMatch(ctx, id)
		}
	case COMMAND_UPCOMING_MATCHES:
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of days arguments %T", args))
		case DaysArguments:
			return bot.upcomingMatches(ctx, args.Days)
		}
	case COMMAND_MY_MATCHES:
		return bot.myMatches(ctx, caller)
	case COMMAND_CHECK_REMINDERS:
		return bot.checkReminders(ctx)
	case COMMAND_RESET_LEAGUE:
		return bot.resetLeague(ctx)
	case COMMAND_LIST_CLUBS:
		return bot.listClubs(ctx)
	case COMMAND_CLUB_INFO:
		switch name := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of club name %T", name))
		case string:
			return bot.clubInfo(ctx, name)
		}
	case COMMAND_SET_CLUB_MONEY:
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of money arguments %T", args))
		case MoneyArguments:
			return bot.setClubMoney(ctx, args)
		}
	case COMMAND_SET_CLUB_ROLE:
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of role arguments %T", args))
		case RoleArguments:
			return bot.setClubRole(ctx, args)
		}
	case COMMAND_RICHEST_CLUBS:
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of limit arguments %T", args))
		case LimitArguments:
			return bot.richestClubs(ctx, args.Limit)
		}
	case COMMAND_CREATE_PLAYER:
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of player arguments %T", args))
		case PlayerArguments:
			return bot.createPlayer(ctx, args)
		}
	case COMMAND_PLAYER_INFO:
		switch name := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of player name %T", name))
		case string:
			return bot.playerInfo(ctx, name)
		}
	case COMMAND_TRANSFER_PLAYER:
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of transfer arguments %T", args))
		case TransferArguments:
			return bot.transferPlayer(ctx, args)
		}
	case COMMAND_FREE_AGENTS:
		return bot.freeAgents(ctx)
	case COMMAND_TOP_PLAYERS:
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of limit arguments %T", args))
		case LimitArguments:
			return bot.topPlayers(ctx, args.Limit)
		}
	case COMMAND_RECENT_TRANSFERS:
		switch args := parseResult.arguments.(type) {
		default:
			panic(fmt.Sprintf("unexpected type of limit arguments %T", args))
		case LimitArguments:
			return bot.recentTransfers(ctx, args.Limit)
		}
	case COMMAND_LEAGUE_STATS:
		return bot.leagueStats(ctx)
	case COMMAND_INFO_BOT:
		return bot.infoBot(ctx)
	case COMMAND_HELP:
		return HelpMessage()
	default:
		panic(fmt.Sprintf("Command %d is not one of the possible ones", parseResult.command))
	}
}

func (bot *Bot) createClub(ctx context.Context, args ClubArguments) []Response {

	club, err := bot.database.CreateClub(ctx, args.Name, args.Owner)
	if errors.Is(err, league.ErrClubExists) {
		log.Info().Str("club", args.Name).Msg("Club already exists")
		return ClubAlreadyExists(args.Name)
	}
	if err != nil {
		log.Error().Err(err).Str("club", args.Name).Msg("Could not create club")
		return InternalError()
	}
	log.Info().Int64("club_id", int64(club.Id)).Str("club", club.Name).Str("owner_id", string(club.Owner)).Msg("Club created")
	return ClubCreated(club)
}

func (bot *Bot) deleteClub(ctx context.Context, name string) []Response {

	club, err := bot.database.GetClubByName(ctx, name)
	if errors.Is(err, league.ErrNotFound) {
		return ClubNotFound(name)
	}
	if err != nil {
		log.Error().Err(err).Str("club", name).Msg("Could not read club")
		return InternalError()
	}
	if err := bot.database.DeleteClub(ctx, club.Id); err != nil {
		log.Error().Err(err).Str("club", name).Msg("Could not delete club")
		return InternalError()
	}
	log.Info().Int64("club_id", int64(club.Id)).Str("club", name).Msg("Club deleted")
	return ClubDeleted(name)
}

func (bot *Bot) scheduleMatch(ctx context.Context, args ScheduleArguments) []Response {

	if !args.Start.After(bot.clock.Now()) {
		return MatchInPast()
	}
	home, err := bot.database.GetClubByName(ctx, args.Home)
	if errors.Is(err, league.ErrNotFound) {
		return ClubNotFound(args.Home)
	}
	if err != nil {
		log.Error().Err(err).Str("club", args.Home).Msg("Could not read club")
		return InternalError()
	}
	away, err := bot.database.GetClubByName(ctx, args.Away)
	if errors.Is(err, league.ErrNotFound) {
		return ClubNotFound(args.Away)
	}
	if err != nil {
		log.Error().Err(err).Str("club", args.Away).Msg("Could not read club")
		return InternalError()
	}

	match, err := bot.database.CreateMatch(ctx, home.Id, away.Id, args.Start)
	if errors.Is(err, league.ErrSameClub) {
		return SameClub()
	}
	if err != nil {
		log.Error().Err(err).Msg("Could not create match")
		return InternalError()
	}
	log.Info().Int64("match_id", int64(match.Id)).Str("home", home.Name).Str("away", away.Name).Time("start", match.Start).Msg("Match scheduled")

	bot.announce(match, home, away)
	return MatchScheduled(match, home, away)
}

func (bot *Bot) rescheduleMatch(ctx context.Context, args RescheduleArguments) []Response {

	if !args.Start.After(bot.clock.Now()) {
		return MatchInPast()
	}
	match, err := bot.database.RescheduleMatch(ctx, args.Match, args.Start)
	if errors.Is(err, league.ErrNotFound) {
		return MatchNotFound(args.Match)
	}
	if err != nil {
		log.Error().Err(err).Int64("match_id", int64(args.Match)).Msg("Could not reschedule match")
		return InternalError()
	}
	home, err := bot.database.GetClub(ctx, match.Home)
	if err != nil {
		log.Error().Err(err).Int64("club_id", int64(match.Home)).Msg("Could not read club")
		return InternalError()
	}
	away, err := bot.database.GetClub(ctx, match.Away)
	if err != nil {
		log.Error().Err(err).Int64("club_id", int64(match.Away)).Msg("Could not read club")
		return InternalError()
	}
	log.Info().Int64("match_id", int64(match.Id)).Time("start", match.Start).Msg("Match rescheduled")

	bot.announce(match, home, away)
	return MatchRescheduled(match, home, away)
}

func (bot *Bot) cancelMatch(ctx context.Context, id league.MatchId) []Response {

	err := bot.database.CancelMatch(ctx, id)
	if errors.Is(err, league.ErrNotFound) {
		return MatchNotFound(id)
	}
	if err != nil {
		log.Error().Err(err).Int64("match_id", int64(id)).Msg("Could not cancel match")
		return InternalError()
	}
	log.Info().Int64("match_id", int64(id)).Msg("Match cancelled")
	return MatchCancelled(id)
}

func (bot *Bot) upcomingMatches(ctx context.Context, days int) []Response {

	now := bot.clock.Now()
	matches, err := bot.database.UpcomingMatches(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		log.Error().Err(err).Msg("Could not read upcoming matches")
		return InternalError()
	}
	clubs, err := bot.clubsById(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Could not read clubs")
		return InternalError()
	}
	return UpcomingMatches(matches, clubs, days)
}

// Upcoming matches of every club the caller owns
func (bot *Bot) myMatches(ctx context.Context, caller Caller) []Response {

	owned, err := bot.database.ListClubsByOwner(ctx, caller.Id)
	if err != nil {
		log.Error().Err(err).Str("user_id", string(caller.Id)).Msg("Could not read clubs of user")
		return InternalError()
	}
	if len(owned) == 0 {
		return NotClubOwner()
	}

	now := bot.clock.Now()
	seen := map[league.MatchId]bool{}
	matches := []league.ScheduledMatch{}
	for _, club := range owned {
		clubMatches, err := bot.database.ClubMatches(ctx, club.Id, now)
		if err != nil {
			log.Error().Err(err).Int64("club_id", int64(club.Id)).Msg("Could not read matches of club")
			return InternalError()
		}
		// Two owned clubs may play each other
		for _, match := range clubMatches {
			if !seen[match.Id] {
				seen[match.Id] = true
				matches = append(matches, match)
			}
		}
	}
	slices.SortFunc(matches, func(a, b league.ScheduledMatch) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})

	clubs, err := bot.clubsById(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Could not read clubs")
		return InternalError()
	}
	return ClubMatches(owned, matches, clubs)
}

func (bot *Bot) checkReminders(ctx context.Context) []Response {

	if bot.reminders == nil {
		return RemindersFailed()
	}
	ids, err := bot.reminders.CheckUpcoming(ctx, bot.clock.Now())
	if errors.Is(err, reminder.ErrTickExpired) {
		log.Warn().Err(err).Int("reminded", len(ids)).Msg("Manual reminder check ran out of time")
		return RemindersExpired(ids)
	}
	if err != nil {
		log.Error().Err(err).Int("reminded", len(ids)).Msg("Manual reminder check failed")
		return RemindersFailed()
	}
	return RemindersChecked(ids)
}

func (bot *Bot) resetLeague(ctx context.Context) []Response {

	if err := bot.database.Reset(ctx); err != nil {
		log.Error().Err(err).Msg("Could not reset league")
		return InternalError()
	}
	log.Warn().Msg("League has been reset")
	return LeagueReset()
}

func (bot *Bot) clubsById(ctx context.Context) (map[league.ClubId]league.Club, error) {
	clubs, err := bot.database.ListClubs(ctx)
	if err != nil {
		return nil, err
	}
	byId := make(map[league.ClubId]league.Club, len(clubs))
	for _, club := range clubs {
		byId[club.Id] = club
	}
	return byId, nil
}

// Tell the recipients of both clubs about a new time of their match,
// without holding the answer to the command
func (bot *Bot) announce(match league.ScheduledMatch, home league.Club, away league.Club) {

	if bot.notifier == nil {
		return
	}
	notice := league.Notice{
		Kind:     league.NoticeScheduled,
		Match:    match,
		Home:     home,
		Away:     away,
		StartsIn: match.Start.Sub(bot.clock.Now()),
	}

	bot.background.Add(1)
	go func() {
		defer bot.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), noticeTimeout)
		defer cancel()
		for _, user := range reminder.ResolveRecipients(ctx, bot.recipients, home, away) {
			if err := bot.notifier.SendDirectMessage(ctx, user, notice); err != nil {
				log.Warn().Err(err).Int64("match_id", int64(match.Id)).Str("user_id", string(user)).Msg("Could not tell user about the match")
			}
		}
	}()
}
