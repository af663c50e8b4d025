package reminder

import (
	"context"
	"time"

	"leaguebot/internal/common"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type Purger interface {
	PurgePlayedMatches(ctx context.Context, before time.Time) (int64, error)
}

// Build an executor that, at most once per period, deletes the matches
// that were reminded and started longer than retention ago
func CreateHousekeeping(clock clockwork.Clock, period time.Duration, retention time.Duration, purger Purger) *common.TimedExecutor {
	return common.CreateTimedExecutor(clock, period, func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTickTimeout)
		defer cancel()

		before := clock.Now().Add(-retention)
		purged, err := purger.PurgePlayedMatches(ctx, before)
		if err != nil {
			log.Error().Err(err).Msg("Could not purge played matches")
			return
		}
		log.Info().Int64("count", purged).Time("before", before).Msg("Purged played matches")
	})
}
