package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"leaguebot/internal/league"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Largest page Discord returns when listing guild members
const memberPageSize = 1000

var errNoGuild = errors.New("club roles need a guild id to list members")

// Part of *discordgo.Session used to list the members of a guild
type memberSession interface {
	GuildMembers(guildID string, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

// Notices of a club with a role go to every member holding the role,
// the rest go to the owner. Needs the guild members intent
type RoleRecipients struct {
	session memberSession
	guildId string
}

func CreateRoleRecipients(session memberSession, guildId string) *RoleRecipients {
	return &RoleRecipients{session: session, guildId: guildId}
}

func (recipients *RoleRecipients) ClubRecipients(ctx context.Context, club league.Club) ([]league.UserId, error) {

	if club.RoleId == "" {
		return []league.UserId{club.Owner}, nil
	}
	if recipients.guildId == "" {
		return nil, errNoGuild
	}

	users := []league.UserId{}
	after := ""
	for {
		members, err := recipients.session.GuildMembers(recipients.guildId, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing members of guild %s: %w", recipients.guildId, err)
		}
		for _, member := range members {
			if member.User == nil || member.User.Bot {
				continue
			}
			if slices.Contains(member.Roles, club.RoleId) {
				users = append(users, league.UserId(member.User.ID))
			}
		}
		if len(members) < memberPageSize || members[len(members)-1].User == nil {
			break
		}
		after = members[len(members)-1].User.ID
	}

	if len(users) == 0 {
		log.Debug().Int64("club_id", int64(club.Id)).Str("role_id", club.RoleId).Msg("Nobody holds the club role, notifying the owner")
		return []league.UserId{club.Owner}, nil
	}
	return users, nil
}
