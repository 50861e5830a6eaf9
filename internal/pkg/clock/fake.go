package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a Clock that only moves when Advance is called. Safe for
// concurrent use.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
	changed *sync.Cond
}

type waiter struct {
	at       time.Time
	ch       chan time.Time
	interval time.Duration // zero for one-shot waiters
	stopped  bool
}

// NewFake returns a Fake clock reading start.
func NewFake(start time.Time) *Fake {
	f := &Fake{now: start}
	f.changed = sync.NewCond(&f.mu)
	return f
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.now
		return ch
	}
	f.addLocked(&waiter{at: f.now.Add(d), ch: ch})
	return ch
}

func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	w := &waiter{at: f.now.Add(d), ch: make(chan time.Time, 1), interval: d}
	f.addLocked(w)
	return &Ticker{C: w.ch, stop: func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.stopped = true
	}}
}

// Advance moves the clock forward and fires, in deadline order, every
// waiter that came due. A ticker spanning several intervals fires once per
// interval; ticks that do not fit in its buffer are dropped.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	target := f.now
	f.mu.Unlock()

	for {
		due := f.collect(target)
		if len(due) == 0 {
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		for _, w := range due {
			select {
			case w.ch <- target:
			default:
			}
		}
	}
}

// WaitForTimers blocks until at least n tickers or After calls are pending.
// Call it before Advance when another goroutine sets up its timers.
func (f *Fake) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.pendingLocked() < n {
		f.changed.Wait()
	}
}

func (f *Fake) addLocked(w *waiter) {
	f.waiters = append(f.waiters, w)
	f.changed.Broadcast()
}

// collect drops stopped waiters, reschedules tickers and returns what is due.
func (f *Fake) collect(target time.Time) []*waiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due, keep []*waiter
	for _, w := range f.waiters {
		switch {
		case w.stopped:
		case !w.at.After(target):
			due = append(due, w)
		default:
			keep = append(keep, w)
		}
	}
	// due entries are copied before rescheduling so the sort sees fire times
	fired := make([]*waiter, len(due))
	for i, w := range due {
		fired[i] = &waiter{at: w.at, ch: w.ch}
		if w.interval > 0 {
			w.at = w.at.Add(w.interval)
			keep = append(keep, w)
		}
	}
	f.waiters = keep
	return fired
}

func (f *Fake) pendingLocked() int {
	n := 0
	for _, w := range f.waiters {
		if !w.stopped {
			n++
		}
	}
	return n
}
