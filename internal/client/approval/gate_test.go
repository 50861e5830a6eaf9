package approval

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ledgerdesk/internal/client/api"
	"ledgerdesk/internal/pkg/clock"
)

// scripted returns one response per poll, repeating the last. Each poll is
// reported on polled when it is set.
type scripted struct {
	mu     sync.Mutex
	steps  []func() ([]api.Session, error)
	polls  int
	polled chan int
}

func (s *scripted) Sessions(context.Context) ([]api.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.polls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.polls++
	if s.polled != nil {
		s.polled <- s.polls
	}
	return s.steps[i]()
}

func (s *scripted) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func pending() ([]api.Session, error) {
	return []api.Session{{SID: "me"}}, nil
}

func approved() ([]api.Session, error) {
	return []api.Session{{SID: "me", Approved: true}}, nil
}

func rejected() ([]api.Session, error) {
	now := time.Now()
	return []api.Session{{SID: "me", RevokedAt: &now}}, nil
}

func missing() ([]api.Session, error) {
	return []api.Session{{SID: "other", Approved: true}}, nil
}

func failing() ([]api.Session, error) {
	return nil, errors.New("connection refused")
}

type signer struct {
	calls atomic.Int32
	err   error
}

func (s *signer) Logout(context.Context) error {
	s.calls.Add(1)
	return s.err
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		step func() ([]api.Session, error)
		want Status
	}{
		{"pending", pending, StatusPending},
		{"approved", approved, StatusApproved},
		{"rejected", rejected, StatusRejected},
		{"not listed", missing, StatusPending},
		{"error", failing, StatusPending},
	}
	for _, tt := range tests {
		got, _ := Check(context.Background(), &scripted{steps: []func() ([]api.Session, error){tt.step}}, "me")
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type waitResult struct {
	res Result
	err error
}

// startWait runs Wait on a fake clock and returns once the first poll is in
// and the tickers are armed.
func startWait(t *testing.T, ctx context.Context, steps []func() ([]api.Session, error), s *signer, opts Options) (*Gate, *scripted, *clock.Fake, <-chan waitResult) {
	t.Helper()
	clk := clock.NewFake(epoch)
	lister := &scripted{steps: steps, polled: make(chan int, 16)}
	opts.Clock = clk
	gate := NewGate(lister, s, opts)

	out := make(chan waitResult, 1)
	go func() {
		res, err := gate.Wait(ctx, "me", "Employee")
		out <- waitResult{res, err}
	}()
	<-lister.polled
	timers := 2
	if opts.MaxWait > 0 {
		timers++
	}
	clk.WaitForTimers(timers)
	return gate, lister, clk, out
}

func finished(t *testing.T, out <-chan waitResult) waitResult {
	t.Helper()
	select {
	case r := <-out:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return")
		return waitResult{}
	}
}

func TestWaitReturnsWithinOneIntervalOfApproval(t *testing.T) {
	interval := 5 * time.Second
	steps := []func() ([]api.Session, error){pending, failing, missing, approved}
	_, lister, clk, out := startWait(t, context.Background(), steps, &signer{}, Options{Interval: interval})

	for poll := 2; poll <= 4; poll++ {
		clk.Advance(interval)
		if got := <-lister.polled; got != poll {
			t.Fatalf("poll %d reported as %d", poll, got)
		}
	}

	r := finished(t, out)
	if r.err != nil {
		t.Fatal(r.err)
	}
	if r.res.Outcome != Approved || r.res.Home != "/employee/home" {
		t.Fatalf("result = %+v", r.res)
	}
	// approval lands on the fourth poll, three intervals in
	if elapsed := clk.Now().Sub(epoch); elapsed != 3*interval {
		t.Fatalf("took %v", elapsed)
	}
}

func TestWaitStopsOnRejection(t *testing.T) {
	interval := 5 * time.Second
	steps := []func() ([]api.Session, error){pending, rejected, pending}
	_, lister, clk, out := startWait(t, context.Background(), steps, &signer{}, Options{Interval: interval})

	clk.Advance(interval)
	r := finished(t, out)
	if r.err != nil || r.res.Outcome != Rejected {
		t.Fatalf("result = %+v, %v", r.res, r.err)
	}

	clk.Advance(10 * interval)
	if n := lister.count(); n != 2 {
		t.Fatalf("polling continued after rejection: %d polls", n)
	}
}

func TestWaitTimesOut(t *testing.T) {
	interval := 5 * time.Second
	steps := []func() ([]api.Session, error){pending}
	_, lister, clk, out := startWait(t, context.Background(), steps, &signer{}, Options{Interval: interval, MaxWait: 12 * time.Second})

	clk.Advance(interval)
	<-lister.polled
	clk.Advance(interval)
	<-lister.polled
	clk.Advance(2 * time.Second)

	r := finished(t, out)
	if r.err != nil || r.res.Outcome != TimedOut || r.res.Status != StatusPending {
		t.Fatalf("result = %+v, %v", r.res, r.err)
	}
	if n := lister.count(); n != 3 {
		t.Fatalf("polls = %d", n)
	}
}

func TestSignOutDuringWait(t *testing.T) {
	remote := errors.New("offline")
	s := &signer{err: remote}
	steps := []func() ([]api.Session, error){pending}
	gate, _, _, out := startWait(t, context.Background(), steps, s, Options{})

	gate.SignOut()
	r := finished(t, out)
	if r.err != nil {
		t.Fatal(r.err)
	}
	if r.res.Outcome != SignedOut || !errors.Is(r.res.SignOutErr, remote) {
		t.Fatalf("result = %+v", r.res)
	}
	if s.calls.Load() != 1 {
		t.Fatalf("logout calls = %d", s.calls.Load())
	}
	gate.SignOut()
}

func TestWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	steps := []func() ([]api.Session, error){pending}
	_, _, _, out := startWait(t, ctx, steps, &signer{}, Options{})

	cancel()
	if r := finished(t, out); !errors.Is(r.err, context.Canceled) {
		t.Fatalf("err = %v", r.err)
	}
}

func TestCountdown(t *testing.T) {
	left := make(chan time.Duration, 4)
	steps := []func() ([]api.Session, error){pending}
	_, _, clk, out := startWait(t, context.Background(), steps, &signer{}, Options{
		Interval:    3 * time.Second,
		MaxWait:     2500 * time.Millisecond,
		OnCountdown: func(d time.Duration) { left <- d },
	})

	for _, want := range []time.Duration{2 * time.Second, time.Second} {
		clk.Advance(time.Second)
		if got := <-left; got != want {
			t.Fatalf("countdown = %v, want %v", got, want)
		}
	}
	clk.Advance(500 * time.Millisecond)

	if r := finished(t, out); r.res.Outcome != TimedOut {
		t.Fatalf("outcome = %s", r.res.Outcome)
	}
	if n := len(left); n != 0 {
		t.Fatalf("extra countdown ticks: %d", n)
	}
}
