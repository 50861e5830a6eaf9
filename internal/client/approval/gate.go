// Package approval waits for the main device to let a new session in.
package approval

import (
	"context"
	"errors"
	"sync"
	"time"

	"ledgerdesk/internal/client/api"
	"ledgerdesk/internal/domain/auth"
	"ledgerdesk/internal/pkg/clock"

	"go.uber.org/zap"
)

// DefaultInterval is the fixed polling period.
const DefaultInterval = 5 * time.Second

// Status of the waiting session as inferred from the session list.
type Status string

const (
	StatusPending  Status = auth.SessionPending
	StatusApproved Status = auth.SessionApproved
	StatusRejected Status = auth.SessionRejected
)

// Outcome is how Wait ended.
type Outcome int

const (
	Approved Outcome = iota + 1
	Rejected
	TimedOut
	SignedOut
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	case TimedOut:
		return "still waiting"
	case SignedOut:
		return "signed out"
	default:
		return "unknown"
	}
}

// Result of a Wait.
type Result struct {
	Outcome    Outcome
	Status     Status
	// Home is the landing route when approved.
	Home       string
	// SignOutErr is the remote logout failure, if any; local credentials are
	// cleared regardless.
	SignOutErr error
}

// Lister fetches the caller's sessions.
type Lister interface {
	Sessions(ctx context.Context) ([]api.Session, error)
}

// SignOuter ends the session and clears local credentials.
type SignOuter interface {
	Logout(ctx context.Context) error
}

type Options struct {
	// Interval between polls; DefaultInterval when zero.
	Interval    time.Duration
	// MaxWait bounds the wait; zero waits until ctx ends.
	MaxWait     time.Duration
	// OnCountdown receives the time left to the next poll once per second.
	OnCountdown func(next time.Duration)
	// OnStatus receives every poll result.
	OnStatus    func(Status)
	Logger      *zap.Logger
	// Clock defaults to the wall clock.
	Clock       clock.Clock
}

// Gate polls the session list until the session is approved or rejected.
type Gate struct {
	lister   Lister
	signer   SignOuter
	opts     Options
	logger   *zap.Logger
	signOut  chan struct{}
	signOnce sync.Once
}

func NewGate(lister Lister, signer SignOuter, opts Options) *Gate {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		lister:  lister,
		signer:  signer,
		opts:    opts,
		logger:  logger,
		signOut: make(chan struct{}),
	}
}

// SignOut asks a running Wait to sign out. Safe to call more than once and
// before Wait starts.
func (g *Gate) SignOut() {
	g.signOnce.Do(func() { close(g.signOut) })
}

// Check polls once. A session missing from the list counts as pending.
func Check(ctx context.Context, lister Lister, sessionID string) (Status, error) {
	sessions, err := lister.Sessions(ctx)
	if err != nil {
		return StatusPending, err
	}
	for _, s := range sessions {
		if s.SID != sessionID {
			continue
		}
		switch {
		case s.Approved:
			return StatusApproved, nil
		case s.RevokedAt != nil:
			return StatusRejected, nil
		default:
			return StatusPending, nil
		}
	}
	return StatusPending, nil
}

// Wait polls immediately, then every Interval. Poll errors count as pending.
// Rejection ends the wait.
func (g *Gate) Wait(ctx context.Context, sessionID, role string) (Result, error) {
	if sessionID == "" {
		return Result{}, errors.New("no session to wait for")
	}

	clk := g.opts.Clock
	poll := clk.NewTicker(g.opts.Interval)
	defer poll.Stop()
	countdown := clk.NewTicker(time.Second)
	defer countdown.Stop()

	var deadline <-chan time.Time
	if g.opts.MaxWait > 0 {
		deadline = clk.After(g.opts.MaxWait)
	}

	last := StatusPending
	check := func() (Result, bool) {
		status, err := Check(ctx, g.lister, sessionID)
		if err != nil {
			g.logger.Debug("approval poll failed", zap.Error(err))
		}
		last = status
		if g.opts.OnStatus != nil {
			g.opts.OnStatus(status)
		}
		switch status {
		case StatusApproved:
			return Result{Outcome: Approved, Status: status, Home: auth.HomeRoute(role)}, true
		case StatusRejected:
			return Result{Outcome: Rejected, Status: status}, true
		}
		return Result{}, false
	}

	if r, done := check(); done {
		return r, nil
	}
	next := clk.Now().Add(g.opts.Interval)

	for {
		select {
		case <-ctx.Done():
			return Result{Status: last}, ctx.Err()

		case <-g.signOut:
			err := g.signer.Logout(ctx)
			return Result{Outcome: SignedOut, Status: last, SignOutErr: err}, nil

		case <-deadline:
			return Result{Outcome: TimedOut, Status: last}, nil

		case <-countdown.C:
			if g.opts.OnCountdown != nil {
				left := next.Sub(clk.Now())
				if left < 0 {
					left = 0
				}
				g.opts.OnCountdown(left.Round(time.Second))
			}

		case <-poll.C:
			next = clk.Now().Add(g.opts.Interval)
			if r, done := check(); done {
				return r, nil
			}
		}
	}
}
