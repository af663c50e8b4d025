package bot

import (
	"fmt"
	"time"

	"leaguebot/internal/league"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	COMMAND_CREATE_CLUB      = iota
	COMMAND_DELETE_CLUB      = iota
	COMMAND_SCHEDULE_MATCH   = iota
	COMMAND_RESCHEDULE_MATCH = iota
	COMMAND_CANCEL_MATCH     = iota
	COMMAND_UPCOMING_MATCHES = iota
	COMMAND_MY_MATCHES       = iota
	COMMAND_CHECK_REMINDERS  = iota
	COMMAND_RESET_LEAGUE     = iota
	COMMAND_LIST_CLUBS       = iota
	COMMAND_CLUB_INFO        = iota
	COMMAND_SET_CLUB_MONEY   = iota
	COMMAND_SET_CLUB_ROLE    = iota
	COMMAND_RICHEST_CLUBS    = iota
	COMMAND_CREATE_PLAYER    = iota
	COMMAND_PLAYER_INFO      = iota
	COMMAND_TRANSFER_PLAYER  = iota
	COMMAND_FREE_AGENTS      = iota
	COMMAND_TOP_PLAYERS      = iota
	COMMAND_RECENT_TRANSFERS = iota
	COMMAND_LEAGUE_STATS     = iota
	COMMAND_INFO_BOT         = iota
	COMMAND_HELP             = iota
)

const (
	PARSEID_OK                     = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
	PARSEID_MISSING_OPTION         = iota
	PARSEID_INVALID_OPTION         = iota
	PARSEID_INVALID_DATE           = iota
	PARSEID_INVALID_DAYS           = iota
	PARSEID_NEGATIVE_AMOUNT        = iota
	PARSEID_INVALID_AGE            = iota
	PARSEID_INVALID_LIMIT          = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_MISSING_OPTION:         "Command `%s` requires option `%s`",
	PARSEID_INVALID_OPTION:         "Option `%s` is not valid",
	PARSEID_INVALID_DATE:           "`%04d-%02d-%02d %02d:%02d` is not a valid date",
	PARSEID_INVALID_DAYS:           "Days must be between %d and %d",
	PARSEID_NEGATIVE_AMOUNT:        "Option `%s` cannot be negative",
	PARSEID_INVALID_AGE:            "Player age must be between %d and %d",
	PARSEID_INVALID_LIMIT:          "Limit must be between %d and %d",
}

const (
	DefaultUpcomingDays = 7
	MaxUpcomingDays     = 30
	DefaultListLimit    = 10
	MaxListLimit        = 25
	MinPlayerAge        = 16
	MaxPlayerAge        = 50
)

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    interface{}
}

type ClubArguments struct {
	Name  string
	Owner league.UserId
}

type ScheduleArguments struct {
	Home  string
	Away  string
	Start time.Time
}

type RescheduleArguments struct {
	Match league.MatchId
	Start time.Time
}

type DaysArguments struct {
	Days int
}

type MoneyArguments struct {
	Club   string
	Amount float64
}

// An empty role clears the role of the club
type RoleArguments struct {
	Club string
	Role string
}

type PlayerArguments struct {
	Name     string
	Value    float64
	Position string
	Age      int    // 0 if not given
	Club     string // Empty for a free agent
}

type TransferArguments struct {
	Player string
	Club   string
	Fee    float64
}

type LimitArguments struct {
	Limit int
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

// Translate the data of a slash command into a command and its arguments.
// Dates are read in the provided location
func Parse(data discordgo.ApplicationCommandInteractionData, location *time.Location) ParseResult {

	opts := options{}
	for _, opt := range data.Options {
		opts[opt.Name] = opt
	}

	missing := func(command int, name string) ParseResult {
		parseid := PARSEID_MISSING_OPTION
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], data.Name, name)}
	}
	invalid := func(command int, name string) ParseResult {
		parseid := PARSEID_INVALID_OPTION
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], name)}
	}
	negative := func(command int, name string) ParseResult {
		parseid := PARSEID_NEGATIVE_AMOUNT
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], name)}
	}

	switch data.Name {
	case "create_club":
		// /create_club <name> <owner>
		command := COMMAND_CREATE_CLUB
		name, ok := opts.text("name")
		if !ok {
			return missing(command, "name")
		}
		if name == "" {
			return invalid(command, "name")
		}
		owner, ok := opts.text("owner")
		if !ok {
			return missing(command, "owner")
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: ClubArguments{Name: name, Owner: league.UserId(owner)}}
	case "delete_club":
		// /delete_club <name>
		command := COMMAND_DELETE_CLUB
		name, ok := opts.text("name")
		if !ok {
			return missing(command, "name")
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: name}
	case "schedule_match":
		// /schedule_match <home> <away> <year> <month> <day> <hour> <minute>
		command := COMMAND_SCHEDULE_MATCH
		home, ok := opts.text("home")
		if !ok {
			return missing(command, "home")
		}
		away, ok := opts.text("away")
		if !ok {
			return missing(command, "away")
		}
		result := parseDate(command, opts, location)
		if result.parseid != PARSEID_OK {
			return result
		}
		start := result.arguments.(time.Time)
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: ScheduleArguments{Home: home, Away: away, Start: start}}
	case "reschedule_match":
		// /reschedule_match <match_id> <year> <month> <day> <hour> <minute>
		command := COMMAND_RESCHEDULE_MATCH
		id, ok := opts.integer("match_id")
		if !ok {
			return missing(command, "match_id")
		}
		if id <= 0 {
			return invalid(command, "match_id")
		}
		result := parseDate(command, opts, location)
		if result.parseid != PARSEID_OK {
			return result
		}
		start := result.arguments.(time.Time)
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: RescheduleArguments{Match: league.MatchId(id), Start: start}}
	case "cancel_match":
		// /cancel_match <match_id>
		command := COMMAND_CANCEL_MATCH
		id, ok := opts.integer("match_id")
		if !ok {
			return missing(command, "match_id")
		}
		if id <= 0 {
			return invalid(command, "match_id")
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: league.MatchId(id)}
	case "upcoming_matches":
		// /upcoming_matches [days]
		command := COMMAND_UPCOMING_MATCHES
		days, ok := opts.integer("days")
		if !ok {
			days = DefaultUpcomingDays
		}
		if days < 1 || days > MaxUpcomingDays {
			parseid := PARSEID_INVALID_DAYS
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], 1, MaxUpcomingDays)}
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: DaysArguments{Days: int(days)}}
	case "list_clubs":
		// /list_clubs
		return ParseResult{command: COMMAND_LIST_CLUBS, parseid: PARSEID_OK}
	case "club_info":
		// /club_info <name>
		command := COMMAND_CLUB_INFO
		name, ok := opts.text("name")
		if !ok {
			return missing(command, "name")
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: name}
	case "set_club_money":
		// /set_club_money <club> <amount>
		command := COMMAND_SET_CLUB_MONEY
		club, ok := opts.text("club")
		if !ok {
			return missing(command, "club")
		}
		amount, ok := opts.number("amount")
		if !ok {
			return missing(command, "amount")
		}
		if amount < 0 {
			return negative(command, "amount")
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: MoneyArguments{Club: club, Amount: amount}}
	case "set_club_role":
		// /set_club_role <club> [role]
		command := COMMAND_SET_CLUB_ROLE
		club, ok := opts.text("club")
		if !ok {
			return missing(command, "club")
		}
		// Role options carry the snowflake of the role
		role, _ := opts.text("role")
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: RoleArguments{Club: club, Role: role}}
	case "richest_clubs":
		// /richest_clubs [limit]
		return parseLimit(COMMAND_RICHEST_CLUBS, opts)
	case "create_player":
		// /create_player <name> <value> [position] [age] [club]
		command := COMMAND_CREATE_PLAYER
		name, ok := opts.text("name")
		if !ok {
			return missing(command, "name")
		}
		if name == "" {
			return invalid(command, "name")
		}
		value, ok := opts.number("value")
		if !ok {
			return missing(command, "value")
		}
		if value < 0 {
			return negative(command, "value")
		}
		args := PlayerArguments{Name: name, Value: value}
		args.Position, _ = opts.text("position")
		args.Club, _ = opts.text("club")
		if age, ok := opts.integer("age"); ok {
			if age < MinPlayerAge || age > MaxPlayerAge {
				parseid := PARSEID_INVALID_AGE
				return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], MinPlayerAge, MaxPlayerAge)}
			}
			args.Age = int(age)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: args}
	case "player_info":
		// /player_info <name>
		command := COMMAND_PLAYER_INFO
		name, ok := opts.text("name")
		if !ok {
			return missing(command, "name")
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: name}
	case "transfer_player":
		// /transfer_player <player> <club> [fee]
		command := COMMAND_TRANSFER_PLAYER
		player, ok := opts.text("player")
		if !ok {
			return missing(command, "player")
		}
		club, ok := opts.text("club")
		if !ok {
			return missing(command, "club")
		}
		fee, _ := opts.number("fee")
		if fee < 0 {
			return negative(command, "fee")
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: TransferArguments{Player: player, Club: club, Fee: fee}}
	case "free_agents":
		// /free_agents
		return ParseResult{command: COMMAND_FREE_AGENTS, parseid: PARSEID_OK}
	case "top_players":
		// /top_players [limit]
		return parseLimit(COMMAND_TOP_PLAYERS, opts)
	case "recent_transfers":
		// /recent_transfers [limit]
		return parseLimit(COMMAND_RECENT_TRANSFERS, opts)
	case "league_stats":
		// /league_stats
		return ParseResult{command: COMMAND_LEAGUE_STATS, parseid: PARSEID_OK}
	case "info_bot":
		// /info_bot
		return ParseResult{command: COMMAND_INFO_BOT, parseid: PARSEID_OK}
	case "my_matches":
		// /my_matches
		return ParseResult{command: COMMAND_MY_MATCHES, parseid: PARSEID_OK}
	case "check_reminders":
		// /check_reminders
		return ParseResult{command: COMMAND_CHECK_REMINDERS, parseid: PARSEID_OK}
	case "reset_league":
		// /reset_league
		return ParseResult{command: COMMAND_RESET_LEAGUE, parseid: PARSEID_OK}
	case "help":
		// /help
		return ParseResult{command: COMMAND_HELP, parseid: PARSEID_OK}
	default:
		log.Debug().Str("command", data.Name).Msg("Received unknown command")
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], data.Name)}
	}
}

// On success the arguments of the result hold the time.Time
func parseDate(command int, opts options, location *time.Location) ParseResult {

	fields := []string{"year", "month", "day", "hour", "minute"}
	values := make([]int, len(fields))
	for i, name := range fields {
		value, ok := opts.integer(name)
		if !ok {
			parseid := PARSEID_MISSING_OPTION
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandNames[command], name)}
		}
		values[i] = int(value)
	}
	year, month, day, hour, minute := values[0], values[1], values[2], values[3], values[4]

	// time.Date normalises out of range values, so a date is only valid
	// if it comes back unchanged
	start := time.Date(year, time.Month(month), day, hour, minute, 0, 0, location)
	if start.Year() != year || int(start.Month()) != month || start.Day() != day || start.Hour() != hour || start.Minute() != minute {
		parseid := PARSEID_INVALID_DATE
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], year, month, day, hour, minute)}
	}
	return ParseResult{command: command, parseid: PARSEID_OK, arguments: start}
}

// Optional limit of the listing commands
func parseLimit(command int, opts options) ParseResult {
	limit, ok := opts.integer("limit")
	if !ok {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		parseid := PARSEID_INVALID_LIMIT
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], 1, MaxListLimit)}
	}
	return ParseResult{command: command, parseid: PARSEID_OK, arguments: LimitArguments{Limit: int(limit)}}
}

func (opts options) text(name string) (string, bool) {
	opt, ok := opts[name]
	if !ok {
		return "", false
	}
	// User options carry the snowflake of the user as a string
	value, ok := opt.Value.(string)
	return value, ok
}

func (opts options) integer(name string) (int64, bool) {
	opt, ok := opts[name]
	if !ok {
		return 0, false
	}
	// Numbers arrive decoded from JSON
	switch value := opt.Value.(type) {
	case float64:
		return int64(value), true
	case int64:
		return value, true
	case int:
		return int64(value), true
	default:
		return 0, false
	}
}

func (opts options) number(name string) (float64, bool) {
	opt, ok := opts[name]
	if !ok {
		return 0, false
	}
	switch value := opt.Value.(type) {
	case float64:
		return value, true
	case int64:
		return float64(value), true
	case int:
		return float64(value), true
	default:
		return 0, false
	}
}
