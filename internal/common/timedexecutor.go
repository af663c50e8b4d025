package common

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Give the timed executor a task and a timeout.
// Call the execute function from time to time.
// If the function gets called when the timeout has been reached,
// the provided task will execute. If not, the call will do nothing.
// The first call always executes the task
type TimedExecutor struct {
	mu        sync.Mutex
	stopwatch Stopwatch
	task      func()
}

// Create a timed executor provided a timeout and a task
func CreateTimedExecutor(clock clockwork.Clock, timeout time.Duration, task func()) *TimedExecutor {
	return &TimedExecutor{stopwatch: CreateStopwatch(clock, timeout), task: task}
}

// Execute the task if the timeout has been reached, else do nothing.
// Reports whether the task ran
func (te *TimedExecutor) Execute() bool {
	te.mu.Lock()
	defer te.mu.Unlock()
	if stopped, _ := te.stopwatch.Stopped(); !stopped {
		return false
	}
	te.stopwatch.Start()
	te.task()
	return true
}
