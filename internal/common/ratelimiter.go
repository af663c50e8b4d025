package common

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type RateLimiter struct {
	mu           sync.Mutex
	clock        clockwork.Clock
	restrictions []Restriction // Restrictions to consider
	history      []time.Time   // History of requests
	duration     time.Duration // Min duration to wait for all restrictions to be lifted
	backoff      Stopwatch     // Running while the remote end asked us to slow down
}

func CreateRateLimiter(clock clockwork.Clock, restrictions []Restriction) *RateLimiter {
	rl := &RateLimiter{clock: clock}
	// Restrictions are just a copy of the provided ones
	rl.restrictions = append(rl.restrictions, restrictions...)
	// Duration
	for _, restriction := range restrictions {
		if restriction.Duration > rl.duration {
			rl.duration = restriction.Duration
		}
	}
	rl.backoff = CreateStopwatch(clock, rl.duration)
	return rl
}

// Block until the restrictions allow one more request, and record it.
// Returns the context error if the context ends first
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := rl.reserve()
		if wait <= 0 {
			return nil
		}
		log.Debug().Dur("wait", wait).Msg("Rate limiter delaying request")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rl.clock.After(wait):
		}
	}
}

// Tell the rate limiter the remote end rejected a request because of rate limits.
// No request will be allowed until retryAfter has passed
// (or the longest restriction if retryAfter is not known)
func (rl *RateLimiter) ReceivedRateLimit(retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if retryAfter <= 0 {
		retryAfter = rl.duration
	}
	rl.backoff.Timeout = retryAfter
	rl.backoff.Start()
	log.Warn().Dur("retry_after", retryAfter).Msg("Received rate limit, backing off")
}

// Either record a request and return zero,
// or return how long to wait before trying again
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if stopped, left := rl.backoff.Stopped(); !stopped {
		return left
	}

	now := rl.clock.Now()
	rl.trim(now)
	analysis := rl.analyse(now)
	if !analysis.allowed {
		return analysis.wait
	}
	rl.history = append(rl.history, now)
	return 0
}

// Trim the current history, leaving only the requests
// that are young enough to be affected by at least one restriction.
// Times are stored in chronological order
func (rl *RateLimiter) trim(now time.Time) {
	index := 0
	for i := len(rl.history) - 1; i >= 0; i-- {
		if now.Sub(rl.history[i]) >= rl.duration {
			index = i + 1
			break
		}
	}
	rl.history = rl.history[index:]
}

func (rl *RateLimiter) analyse(now time.Time) Analysis {

	// Merge the analyses of every restriction
	var wait time.Duration = 0
	allowed := true
	for _, restriction := range rl.restrictions {
		analysis := restriction.Analyse(rl.history, now)
		allowed = allowed && analysis.allowed
		if analysis.wait > wait {
			wait = analysis.wait
		}
	}
	return Analysis{allowed, wait}
}
