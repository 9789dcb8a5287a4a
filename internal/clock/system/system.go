// Package system provides real clock and sleep implementations.
package system

import (
	"context"
	"time"
)

// Clock implements crawl.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Sleeper implements crawl.Sleeper with a real timer that wakes early on
// context cancellation.
type Sleeper struct{}

// NewSleeper creates a new Sleeper.
func NewSleeper() *Sleeper {
	return &Sleeper{}
}

// Sleep blocks for d or until ctx finishes, whichever comes first.
func (Sleeper) Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
