package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"leaguebot/internal/common"
	"leaguebot/internal/league"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultWindow      = 5 * time.Minute
	DefaultInterval    = time.Minute
	DefaultTickTimeout = 30 * time.Second
)

// Budget to give a claim back once the tick has run out of time
const releaseTimeout = 5 * time.Second

// What the scheduler needs from the persistence layer
type Store interface {
	ListMatchesNeedingReminder(ctx context.Context, now time.Time, window time.Duration) ([]league.ScheduledMatch, error)
	MarkReminderSent(ctx context.Context, id league.MatchId) (league.MarkResult, error)
	ReleaseReminder(ctx context.Context, id league.MatchId) error
	GetClub(ctx context.Context, id league.ClubId) (league.Club, error)
}

// Delivers a notice to one user. An error means that user did not get it.
// Errors wrapping ErrNotSent mean nothing reached Discord
type Notifier interface {
	SendDirectMessage(ctx context.Context, user league.UserId, notice league.Notice) error
}

type Config struct {
	Window      time.Duration   // How long before the start of a match its reminder is due
	Interval    time.Duration   // Time between two ticks
	TickTimeout time.Duration   // Upper bound for the I/O of a single tick
	Clock       clockwork.Clock // Real clock if nil
}

type Stats struct {
	Running             bool      `json:"running"`
	Window              string    `json:"window"`
	Interval            string    `json:"interval"`
	Ticks               int       `json:"ticks"`
	LastTick            time.Time `json:"last_tick"`
	LastTickId          string    `json:"last_tick_id"`
	LastNotified        int       `json:"last_notified"`
	TotalNotified       int       `json:"total_notified"`
	FailedNotifications int       `json:"failed_notifications"`
	LastError           string    `json:"last_error,omitempty"`
}

// Sends one reminder per match to the recipients of both clubs,
// shortly before the match starts.
//
// Delivery is at most once: a match is claimed in the store (flag flipped
// from false to true) before any message is sent, and only the tick that
// made the transition sends. A failed direct message is logged and never
// retried. The one exception is a claim whose messages all failed with
// ErrNotSent because the tick ran out of time: it is given back so the
// next tick reminds the match
type Scheduler struct {
	store       Store
	notifier    Notifier
	recipients  Recipients
	clock       clockwork.Clock
	window      time.Duration
	interval    time.Duration
	tickTimeout time.Duration

	housekeeping *common.TimedExecutor

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	statsMu sync.Mutex
	stats   Stats
}

func CreateScheduler(config Config, store Store, notifier Notifier) (*Scheduler, error) {
	if config.Window <= 0 {
		return nil, fmt.Errorf("%w: lookahead window must be positive, got %v", ErrInvalidConfig, config.Window)
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidConfig, config.Interval)
	}
	if config.TickTimeout <= 0 {
		config.TickTimeout = DefaultTickTimeout
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Interval > config.Window {
		// Matches could start in between two ticks without ever being seen
		log.Warn().
			Dur("interval", config.Interval).
			Dur("window", config.Window).
			Msg("Reminder interval is longer than the lookahead window, some matches may get no reminder")
	}

	return &Scheduler{
		store:       store,
		notifier:    notifier,
		recipients:  OwnerRecipients{},
		clock:       config.Clock,
		window:      config.Window,
		interval:    config.Interval,
		tickTimeout: config.TickTimeout,
		stats: Stats{
			Window:   config.Window.String(),
			Interval: config.Interval.String(),
		},
	}, nil
}

// Run the executor after every tick of the loop
func (s *Scheduler) SetHousekeeping(housekeeping *common.TimedExecutor) {
	s.housekeeping = housekeeping
}

// Choose who gets the reminders of a club. Owners only by default
func (s *Scheduler) SetRecipients(recipients Recipients) {
	s.recipients = recipients
}

// Find the matches whose reminder is due at the provided time, notify the
// recipients of both clubs and return the ids of the matches this call reminded.
// A store failure stops the check and is returned wrapping ErrStoreUnavailable,
// along with the matches already reminded. When the context ends first the
// check stops claiming and returns ErrTickExpired instead
func (s *Scheduler) CheckUpcoming(ctx context.Context, now time.Time) ([]league.MatchId, error) {
	tickId := uuid.New().String()
	logger := log.With().Str("tick_id", tickId).Logger()

	notified, failures, err := s.check(ctx, &logger, now)

	s.statsMu.Lock()
	s.stats.Ticks++
	s.stats.LastTick = now
	s.stats.LastTickId = tickId
	s.stats.LastNotified = len(notified)
	s.stats.TotalNotified += len(notified)
	s.stats.FailedNotifications += failures
	if err != nil {
		s.stats.LastError = err.Error()
	} else {
		s.stats.LastError = ""
	}
	s.statsMu.Unlock()

	if len(notified) > 0 {
		logger.Info().Int("count", len(notified)).Msg("Sent match reminders")
	} else {
		logger.Debug().Msg("No match reminders due")
	}
	return notified, err
}

func (s *Scheduler) check(ctx context.Context, logger *zerolog.Logger, now time.Time) ([]league.MatchId, int, error) {

	matches, err := s.store.ListMatchesNeedingReminder(ctx, now, s.window)
	if err != nil {
		return nil, 0, storeError(ctx, err)
	}

	notified := []league.MatchId{}
	failures := 0
	for index, match := range matches {
		matchLogger := logger.With().Int64("match_id", int64(match.Id)).Logger()

		if err := ctx.Err(); err != nil {
			return notified, failures, expired(len(matches)-index, err)
		}
		if match.ReminderSent || !match.StartsWithin(now, s.window) {
			matchLogger.Debug().Time("start", match.Start).Msg("Ignoring match outside the reminder window")
			continue
		}

		// Resolve the clubs before claiming, so a lookup failure
		// leaves the match untouched for the next tick
		home, err := s.store.GetClub(ctx, match.Home)
		if errors.Is(err, league.ErrNotFound) {
			matchLogger.Warn().Int64("club_id", int64(match.Home)).Msg("Home club vanished, skipping match")
			continue
		}
		if err != nil {
			return notified, failures, storeError(ctx, err)
		}
		away, err := s.store.GetClub(ctx, match.Away)
		if errors.Is(err, league.ErrNotFound) {
			matchLogger.Warn().Int64("club_id", int64(match.Away)).Msg("Away club vanished, skipping match")
			continue
		}
		if err != nil {
			return notified, failures, storeError(ctx, err)
		}
		users := ResolveRecipients(ctx, s.recipients, home, away)

		if err := ctx.Err(); err != nil {
			return notified, failures, expired(len(matches)-index, err)
		}
		result, err := s.store.MarkReminderSent(ctx, match.Id)
		if err != nil {
			return notified, failures, storeError(ctx, err)
		}
		if result != league.MarkSent {
			matchLogger.Debug().Stringer("result", result).Msg("Reminder claimed elsewhere, skipping match")
			continue
		}

		notice := league.Notice{
			Kind:     league.NoticeReminder,
			Match:    match,
			Home:     home,
			Away:     away,
			StartsIn: match.Start.Sub(now),
		}
		unsent := 0
		for _, user := range users {
			if err := s.notifier.SendDirectMessage(ctx, user, notice); err != nil {
				failures++
				if errors.Is(err, ErrNotSent) {
					unsent++
				}
				matchLogger.Warn().
					Err(&NotificationError{Match: match.Id, Recipient: user, Err: err}).
					Msg("Could not deliver match reminder")
				continue
			}
			matchLogger.Debug().Str("user_id", string(user)).Msg("Delivered match reminder")
		}

		if len(users) > 0 && unsent == len(users) && ctx.Err() != nil {
			// Nobody got the reminder, so the next tick may send it
			s.release(ctx, &matchLogger, match.Id)
			return notified, failures, expired(len(matches)-index, ctx.Err())
		}
		notified = append(notified, match.Id)
	}
	return notified, failures, nil
}

// Give back a claim with a budget of its own, the one of the tick is gone
func (s *Scheduler) release(ctx context.Context, logger *zerolog.Logger, id league.MatchId) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.store.ReleaseReminder(releaseCtx, id); err != nil {
		logger.Error().Err(err).Msg("Could not give back the reminder claim, the match gets no reminder")
		return
	}
	logger.Info().Msg("Reminder left for the next tick")
}

func expired(left int, err error) error {
	return fmt.Errorf("%w: %d matches left for the next tick: %w", ErrTickExpired, left, err)
}

// Errors caused by the end of the tick budget are not store failures
func storeError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrTickExpired, err)
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// Check for due reminders right away and then once per interval, until the
// context ends. Errors and panics of a tick are logged and the loop goes on.
// A tick that has started is never interrupted by the end of the context
func (s *Scheduler) RunLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidConfig, interval)
	}
	log.Info().Dur("interval", interval).Dur("window", s.window).Msg("Starting match reminder loop")

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Match reminder loop stopped")
			return ctx.Err()
		case <-ticker.Chan():
			if ctx.Err() != nil {
				continue
			}
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.tickTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Match reminder tick panicked")
			s.statsMu.Lock()
			s.stats.LastError = fmt.Sprintf("panic: %v", r)
			s.statsMu.Unlock()
		}
	}()

	_, err := s.CheckUpcoming(ctx, s.clock.Now())
	if errors.Is(err, ErrTickExpired) {
		log.Warn().Err(err).Dur("timeout", s.tickTimeout).Msg("Match reminder tick ran out of time")
	} else if err != nil {
		log.Error().Err(err).Msg("Match reminder tick failed")
	}
	if s.housekeeping != nil {
		s.housekeeping.Execute()
	}
}

// Launch the loop in the background with the configured interval
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.RunLoop(loopCtx, s.interval); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Match reminder loop ended")
		}
	}()
	return nil
}

// Stop the loop, waiting for the tick in progress (if any) to finish
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	log.Info().Msg("Match reminder scheduler stopped")
	return nil
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	stats := s.stats
	stats.Running = running
	return stats
}
