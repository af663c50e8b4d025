package bot

import (
	"github.com/bwmarrin/discordgo"
)

var commandNames map[int]string = map[int]string{
	COMMAND_CREATE_CLUB:      "create_club",
	COMMAND_DELETE_CLUB:      "delete_club",
	COMMAND_SCHEDULE_MATCH:   "schedule_match",
	COMMAND_RESCHEDULE_MATCH: "reschedule_match",
	COMMAND_CANCEL_MATCH:     "cancel_match",
	COMMAND_UPCOMING_MATCHES: "upcoming_matches",
	COMMAND_MY_MATCHES:       "my_matches",
	COMMAND_CHECK_REMINDERS:  "check_reminders",
	COMMAND_RESET_LEAGUE:     "reset_league",
	COMMAND_LIST_CLUBS:       "list_clubs",
	COMMAND_CLUB_INFO:        "club_info",
	COMMAND_SET_CLUB_MONEY:   "set_club_money",
	COMMAND_SET_CLUB_ROLE:    "set_club_role",
	COMMAND_RICHEST_CLUBS:    "richest_clubs",
	COMMAND_CREATE_PLAYER:    "create_player",
	COMMAND_PLAYER_INFO:      "player_info",
	COMMAND_TRANSFER_PLAYER:  "transfer_player",
	COMMAND_FREE_AGENTS:      "free_agents",
	COMMAND_TOP_PLAYERS:      "top_players",
	COMMAND_RECENT_TRANSFERS: "recent_transfers",
	COMMAND_LEAGUE_STATS:     "league_stats",
	COMMAND_INFO_BOT:         "info_bot",
	COMMAND_HELP:             "help",
}

// Commands that only members with the Administrator permission can run
var adminCommands map[int]bool = map[int]bool{
	COMMAND_CREATE_CLUB:      true,
	COMMAND_DELETE_CLUB:      true,
	COMMAND_SCHEDULE_MATCH:   true,
	COMMAND_RESCHEDULE_MATCH: true,
	COMMAND_CANCEL_MATCH:     true,
	COMMAND_CHECK_REMINDERS:  true,
	COMMAND_RESET_LEAGUE:     true,
	COMMAND_SET_CLUB_MONEY:   true,
	COMMAND_SET_CLUB_ROLE:    true,
	COMMAND_CREATE_PLAYER:    true,
	COMMAND_TRANSFER_PLAYER:  true,
	COMMAND_INFO_BOT:         true,
}

var adminPermission int64 = discordgo.PermissionAdministrator

func floatPtr(value float64) *float64 {
	return &value
}

func dateOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionInteger, Name: "year", Description: "Year", Required: true, MinValue: floatPtr(2000), MaxValue: 9999},
		{Type: discordgo.ApplicationCommandOptionInteger, Name: "month", Description: "Month (1-12)", Required: true, MinValue: floatPtr(1), MaxValue: 12},
		{Type: discordgo.ApplicationCommandOptionInteger, Name: "day", Description: "Day (1-31)", Required: true, MinValue: floatPtr(1), MaxValue: 31},
		{Type: discordgo.ApplicationCommandOptionInteger, Name: "hour", Description: "Hour (0-23)", Required: true, MinValue: floatPtr(0), MaxValue: 23},
		{Type: discordgo.ApplicationCommandOptionInteger, Name: "minute", Description: "Minute (0-59)", Required: true, MinValue: floatPtr(0), MaxValue: 59},
	}
}

func matchIdOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "match_id",
		Description: "Id of the match",
		Required:    true,
		MinValue:    floatPtr(1),
	}
}

func limitOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "limit",
		Description: "How many to show (default 10)",
		Required:    false,
		MinValue:    floatPtr(1),
		MaxValue:    MaxListLimit,
	}
}

func admin(command *discordgo.ApplicationCommand) *discordgo.ApplicationCommand {
	command.DefaultMemberPermissions = &adminPermission
	return command
}

// Definitions of the slash commands registered in the guild
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_CREATE_CLUB],
			Description: "Create a new club",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Name of the club", Required: true},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "owner", Description: "Owner of the club", Required: true},
			},
		}),
		{
			Name:        commandNames[COMMAND_LIST_CLUBS],
			Description: "List all clubs",
		},
		{
			Name:        commandNames[COMMAND_CLUB_INFO],
			Description: "Show information about a club",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Name of the club", Required: true},
			},
		},
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_SET_CLUB_MONEY],
			Description: "Set the money of a club",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "club", Description: "Name of the club", Required: true},
				{Type: discordgo.ApplicationCommandOptionNumber, Name: "amount", Description: "Money in euros", Required: true, MinValue: floatPtr(0)},
			},
		}),
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_SET_CLUB_ROLE],
			Description: "Send the notices of a club to the members of a role",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "club", Description: "Name of the club", Required: true},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role of the club, leave empty to notify the owner only", Required: false},
			},
		}),
		{
			Name:        commandNames[COMMAND_RICHEST_CLUBS],
			Description: "Show the richest clubs",
			Options:     []*discordgo.ApplicationCommandOption{limitOption()},
		},
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_DELETE_CLUB],
			Description: "Delete a club with its matches and transfers",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Name of the club", Required: true},
			},
		}),
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_CREATE_PLAYER],
			Description: "Create a new player",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Name of the player", Required: true},
				{Type: discordgo.ApplicationCommandOptionNumber, Name: "value", Description: "Market value in euros", Required: true, MinValue: floatPtr(0)},
				{Type: discordgo.ApplicationCommandOptionString, Name: "position", Description: "Position on the pitch", Required: false},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "age", Description: "Age (16-50)", Required: false, MinValue: floatPtr(MinPlayerAge), MaxValue: MaxPlayerAge},
				{Type: discordgo.ApplicationCommandOptionString, Name: "club", Description: "Club of the player, free agent if empty", Required: false},
			},
		}),
		{
			Name:        commandNames[COMMAND_PLAYER_INFO],
			Description: "Show information about a player",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Name of the player", Required: true},
			},
		},
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_TRANSFER_PLAYER],
			Description: "Transfer a player to a club",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "player", Description: "Name of the player", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "club", Description: "Club buying the player", Required: true},
				{Type: discordgo.ApplicationCommandOptionNumber, Name: "fee", Description: "Transfer fee in euros (default 0)", Required: false, MinValue: floatPtr(0)},
			},
		}),
		{
			Name:        commandNames[COMMAND_FREE_AGENTS],
			Description: "Show the players without a club",
		},
		{
			Name:        commandNames[COMMAND_TOP_PLAYERS],
			Description: "Show the most valuable players",
			Options:     []*discordgo.ApplicationCommandOption{limitOption()},
		},
		{
			Name:        commandNames[COMMAND_RECENT_TRANSFERS],
			Description: "Show the latest transfers",
			Options:     []*discordgo.ApplicationCommandOption{limitOption()},
		},
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_SCHEDULE_MATCH],
			Description: "Schedule a match between two clubs",
			Options: append([]*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "home", Description: "Home club", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "away", Description: "Away club", Required: true},
			}, dateOptions()...),
		}),
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_RESCHEDULE_MATCH],
			Description: "Move a match to another time",
			Options:     append([]*discordgo.ApplicationCommandOption{matchIdOption()}, dateOptions()...),
		}),
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_CANCEL_MATCH],
			Description: "Cancel a scheduled match",
			Options:     []*discordgo.ApplicationCommandOption{matchIdOption()},
		}),
		{
			Name:        commandNames[COMMAND_UPCOMING_MATCHES],
			Description: "Show upcoming matches",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "days",
					Description: "Number of days to look ahead (default 7)",
					Required:    false,
					MinValue:    floatPtr(1),
					MaxValue:    MaxUpcomingDays,
				},
			},
		},
		{
			Name:        commandNames[COMMAND_MY_MATCHES],
			Description: "Show the upcoming matches of your clubs",
		},
		{
			Name:        commandNames[COMMAND_LEAGUE_STATS],
			Description: "Show statistics of the whole league",
		},
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_INFO_BOT],
			Description: "Show information about the bot",
		}),
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_CHECK_REMINDERS],
			Description: "Check for due match reminders now",
		}),
		admin(&discordgo.ApplicationCommand{
			Name:        commandNames[COMMAND_RESET_LEAGUE],
			Description: "Delete every club, player, transfer and match",
		}),
		{
			Name:        commandNames[COMMAND_HELP],
			Description: "Show the available commands",
		},
	}
}
