package main

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"ledgerdesk/internal/client/api"
	"ledgerdesk/internal/client/approval"
)

type stillPending struct{}

func (stillPending) Sessions(context.Context) ([]api.Session, error) {
	return []api.Session{{SID: "s1"}}, nil
}

type countingSigner struct{ calls atomic.Int32 }

func (c *countingSigner) Logout(context.Context) error {
	c.calls.Add(1)
	return nil
}

// blockingReader never yields input, like an idle terminal.
type blockingReader struct{ done chan struct{} }

func (b blockingReader) Read([]byte) (int, error) {
	<-b.done
	return 0, io.EOF
}

func TestWaitPlainSignOut(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		signal      os.Signal
		wantOutcome approval.Outcome
		wantErr     error
		wantLogouts int32
	}{
		{name: "typed s", input: "s\n", wantOutcome: approval.SignedOut, wantLogouts: 1},
		{name: "typed signout", input: "\n  SignOut \n", wantOutcome: approval.SignedOut, wantLogouts: 1},
		{name: "ctrl-c", signal: os.Interrupt, wantOutcome: approval.SignedOut, wantLogouts: 1},
		{name: "terminated", signal: syscall.SIGTERM, wantErr: context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idle := make(chan struct{})
			defer close(idle)
			var in io.Reader = blockingReader{done: idle}
			if tt.input != "" {
				in = io.MultiReader(strings.NewReader(tt.input), in)
			}
			signals := make(chan os.Signal, 1)
			if tt.signal != nil {
				signals <- tt.signal
			}

			signer := &countingSigner{}
			gate := approval.NewGate(stillPending{}, signer, approval.Options{Interval: time.Hour})

			done := make(chan struct{})
			var res approval.Result
			var err error
			go func() {
				res, err = waitPlain(context.Background(), gate, "s1", "Manager", in, signals)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("wait did not end")
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && res.Outcome != tt.wantOutcome {
				t.Fatalf("outcome = %s, want %s", res.Outcome, tt.wantOutcome)
			}
			if n := signer.calls.Load(); n != tt.wantLogouts {
				t.Fatalf("logout calls = %d, want %d", n, tt.wantLogouts)
			}
		})
	}
}
