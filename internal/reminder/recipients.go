package reminder

import (
	"context"

	"leaguebot/internal/league"

	"github.com/rs/zerolog/log"
)

// Expands a club into the users that get the notices about its matches
type Recipients interface {
	ClubRecipients(ctx context.Context, club league.Club) ([]league.UserId, error)
}

// Notices go to the owner of the club only
type OwnerRecipients struct{}

func (OwnerRecipients) ClubRecipients(ctx context.Context, club league.Club) ([]league.UserId, error) {
	return []league.UserId{club.Owner}, nil
}

// Users to notify about a match between the clubs. A club whose
// recipients cannot be resolved falls back to its owner
func ResolveRecipients(ctx context.Context, recipients Recipients, clubs ...league.Club) []league.UserId {
	lists := make([][]league.UserId, 0, len(clubs))
	for _, club := range clubs {
		users, err := recipients.ClubRecipients(ctx, club)
		if err != nil || len(users) == 0 {
			if err != nil {
				log.Warn().Err(err).Int64("club_id", int64(club.Id)).Msg("Could not resolve recipients of club, notifying the owner")
			}
			users = []league.UserId{club.Owner}
		}
		lists = append(lists, users)
	}
	return league.UniqueUsers(lists...)
}
