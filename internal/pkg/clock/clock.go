// Package clock abstracts the time calls of polling loops so tests can drive
// them by hand.
package clock

import "time"

// Clock is the subset of the time package that pollers use.
type Clock interface {
	Now() time.Time
	// After delivers the time once d has elapsed; d <= 0 fires at once.
	After(d time.Duration) <-chan time.Time
	// NewTicker panics if d <= 0, like time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers ticks on C, dropping them when the reader falls behind.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop ends the ticks. C is not closed.
func (t *Ticker) Stop() { t.stop() }

// Real returns the wall clock.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}
