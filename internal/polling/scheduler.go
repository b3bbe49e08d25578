package polling

import "time"

// Scheduler provides the single pending tick of a session.
// The returned stop function releases the timer early.
type Scheduler interface {
	After(d time.Duration) (<-chan time.Time, func())
}

type timerScheduler struct{}

func (timerScheduler) After(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTimer(d)
	return t.C, func() { t.Stop() }
}
