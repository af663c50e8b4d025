package reminder

import (
	"errors"
	"fmt"

	"leaguebot/internal/league"
)

var (
	// Reading or writing matches failed. The tick that hit it is abandoned
	ErrStoreUnavailable = errors.New("match store unavailable")
	// The time budget of the tick ran out. Matches not reached are left
	// for the next tick
	ErrTickExpired = errors.New("reminder tick ran out of time")
	// Returned by notifiers that gave up before contacting Discord,
	// so the user surely did not get the message
	ErrNotSent = errors.New("direct message not sent")
	// Window or interval unusable. Fatal at startup
	ErrInvalidConfig  = errors.New("invalid reminder configuration")
	ErrAlreadyRunning = errors.New("reminder scheduler already running")
	ErrNotRunning     = errors.New("reminder scheduler not running")
)

// A single recipient of a match could not be reached.
// It never aborts a tick
type NotificationError struct {
	Match     league.MatchId
	Recipient league.UserId
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notifying user %s about match %d: %v", e.Recipient, e.Match, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
