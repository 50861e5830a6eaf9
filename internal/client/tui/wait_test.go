package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"ledgerdesk/internal/client/api"
	"ledgerdesk/internal/client/approval"

	tea "github.com/charmbracelet/bubbletea"
)

type pendingLister struct{}

func (pendingLister) Sessions(context.Context) ([]api.Session, error) {
	return []api.Session{{SID: "s1"}}, nil
}

type nopSigner struct{ calls int }

func (n *nopSigner) Logout(context.Context) error {
	n.calls++
	return nil
}

func newModel() (*WaitModel, *nopSigner) {
	signer := &nopSigner{}
	gate := approval.NewGate(pendingLister{}, signer, approval.Options{Interval: time.Hour})
	return NewWaitModel(context.Background(), gate, WaitInfo{Email: "amy@example.com", DeviceName: "laptop", SessionID: "s1", Role: "Manager"}), signer
}

func TestWaitModelRendersProgress(t *testing.T) {
	m, _ := newModel()
	m.Update(statusMsg(approval.StatusPending))
	m.Update(countdownMsg(3 * time.Second))

	view := m.View()
	for _, want := range []string{"amy@example.com", "laptop", "pending", "Next check in 3s", "1 checks"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestWaitModelQuitsOnResult(t *testing.T) {
	m, _ := newModel()
	_, cmd := m.Update(doneMsg{result: approval.Result{Outcome: approval.Approved, Home: "/home"}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("command is not quit")
	}
	res, err := m.Result()
	if err != nil || res.Home != "/home" {
		t.Fatalf("result = %+v, %v", res, err)
	}
	if !strings.Contains(m.View(), "approved") {
		t.Fatal("view does not show approval")
	}
}

func TestSignOutKey(t *testing.T) {
	m, signer := newModel()
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})

	msg := m.Init()()
	done, ok := msg.(doneMsg)
	if !ok || done.result.Outcome != approval.SignedOut {
		t.Fatalf("msg = %+v", msg)
	}
	if signer.calls != 1 {
		t.Fatalf("logout calls = %d", signer.calls)
	}
}

func TestQuitKeyCancelsWait(t *testing.T) {
	m, _ := newModel()
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	done := m.Init()().(doneMsg)
	if done.err == nil {
		t.Fatal("expected cancellation error")
	}
}
