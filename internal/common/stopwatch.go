package common

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// This stopwatch keeps track of time. You can set a timeout for it,
// make it start counting time, and ask it if the timeout has been reached
type Stopwatch struct {
	Timeout   time.Duration
	clock     clockwork.Clock
	startTime time.Time
	Running   bool
}

func CreateStopwatch(clock clockwork.Clock, timeout time.Duration) Stopwatch {
	return Stopwatch{Timeout: timeout, clock: clock}
}

func (s *Stopwatch) Start() {
	s.Running = true
	s.startTime = s.clock.Now()
}

func (s *Stopwatch) Stop() {
	s.Running = false
}

// Report if the stopwatch is stopped, meaning either it was never started
// or its timeout has been reached. The duration returned is the time left
// until the timeout, zero when stopped
func (s *Stopwatch) Stopped() (bool, time.Duration) {
	if !s.Running {
		return true, 0
	}
	left := s.startTime.Add(s.Timeout).Sub(s.clock.Now())
	if left <= 0 {
		s.Running = false
		return true, 0
	}
	return false, left
}
