package engine

import "time"

// systemClock is the default host.Clock, backed by the real wall clock.
type systemClock struct{}

// NewSystemClock builds a host.Clock backed by time.Now/time.Sleep.
func NewSystemClock() *systemClock { return &systemClock{} }

func (systemClock) CurrentSteadyTime() time.Time { return time.Now() }
func (systemClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
