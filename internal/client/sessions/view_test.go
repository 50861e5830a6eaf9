package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerdesk/internal/client/api"
)

type fakeBackend struct {
	list      []api.Session
	fetches   int
	actErr    error
	fetchErr  error
	approved  []string
	onApprove func()
}

func (f *fakeBackend) Sessions(context.Context) ([]api.Session, error) {
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]api.Session, len(f.list))
	copy(out, f.list)
	return out, nil
}

func (f *fakeBackend) ApproveSession(_ context.Context, sid string) error {
	if f.onApprove != nil {
		f.onApprove()
	}
	if f.actErr != nil {
		return f.actErr
	}
	f.approved = append(f.approved, sid)
	for i := range f.list {
		if f.list[i].SID == sid {
			f.list[i].Approved = true
		}
	}
	return nil
}

func (f *fakeBackend) RevokeSession(context.Context, string) error { return f.actErr }

func (f *fakeBackend) RevokeOtherSessions(context.Context) ([]string, error) {
	if f.actErr != nil {
		return nil, f.actErr
	}
	var revoked []string
	now := time.Now()
	for i := range f.list {
		if !f.list[i].IsCurrent {
			f.list[i].RevokedAt = &now
			revoked = append(revoked, f.list[i].SID)
		}
	}
	return revoked, nil
}

func (f *fakeBackend) TransferMainDevice(context.Context, string) error { return f.actErr }

func twoDevices() []api.Session {
	return []api.Session{
		{SID: "main", Approved: true, IsCurrent: true, IsMainDevice: true},
		{SID: "laptop"},
	}
}

func TestApproveRefetches(t *testing.T) {
	backend := &fakeBackend{list: twoDevices()}
	view := NewView(backend, nil)
	if err := view.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}

	backend.onApprove = func() {
		// the local list is untouched while the request runs
		if snap := view.Snapshot(); snap.Sessions[1].Approved || !snap.Loading {
			t.Errorf("snapshot during approve = %+v", snap)
		}
	}
	if err := view.Approve(context.Background(), "laptop"); err != nil {
		t.Fatal(err)
	}
	if backend.fetches != 2 {
		t.Fatalf("fetches = %d, want 2", backend.fetches)
	}
	snap := view.Snapshot()
	if !snap.Sessions[1].Approved || snap.Loading || snap.Error != "" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestRevokeOthersRefetches(t *testing.T) {
	backend := &fakeBackend{list: twoDevices()}
	view := NewView(backend, nil)
	_ = view.Fetch(context.Background())

	if err := view.RevokeOthers(context.Background()); err != nil {
		t.Fatal(err)
	}
	if backend.fetches != 2 {
		t.Fatalf("fetches = %d, want 2", backend.fetches)
	}
	if got := Status(view.Snapshot().Sessions[1]); got != "rejected" {
		t.Fatalf("status = %s", got)
	}
}

func TestActionErrorKeepsList(t *testing.T) {
	backend := &fakeBackend{list: twoDevices(), actErr: &api.Error{Status: 403, Message: "only the main device can do this"}}
	view := NewView(backend, nil)
	_ = view.Fetch(context.Background())
	before := view.Snapshot()

	for name, act := range map[string]func(context.Context) error{
		"approve":  func(ctx context.Context) error { return view.Approve(ctx, "laptop") },
		"revoke":   func(ctx context.Context) error { return view.Revoke(ctx, "laptop") },
		"others":   view.RevokeOthers,
		"transfer": func(ctx context.Context) error { return view.TransferMain(ctx, "laptop") },
	} {
		if err := act(context.Background()); !api.IsStatus(err, 403) {
			t.Fatalf("%s: err = %v", name, err)
		}
		snap := view.Snapshot()
		if snap.Error == "" || snap.Loading || len(snap.Sessions) != len(before.Sessions) {
			t.Fatalf("%s: snapshot = %+v", name, snap)
		}
	}
	if backend.fetches != 1 {
		t.Fatalf("fetches = %d, want 1", backend.fetches)
	}
}

func TestFetchErrorClearedByNextCall(t *testing.T) {
	backend := &fakeBackend{list: twoDevices(), fetchErr: errors.New("offline")}
	view := NewView(backend, nil)
	if err := view.Fetch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if view.Snapshot().Error != "offline" {
		t.Fatalf("error = %q", view.Snapshot().Error)
	}

	backend.fetchErr = nil
	_ = view.Fetch(context.Background())
	snap := view.Snapshot()
	if snap.Error != "" || len(snap.Sessions) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if cur, ok := snap.Current(); !ok || cur.SID != "main" {
		t.Fatalf("current = %+v", cur)
	}
}

func TestStatus(t *testing.T) {
	now := time.Now()
	tests := []struct {
		s    api.Session
		want string
	}{
		{api.Session{}, "pending"},
		{api.Session{Approved: true, ApprovedAt: &now}, "approved"},
		{api.Session{RevokedAt: &now}, "rejected"},
		{api.Session{ApprovedAt: &now, RevokedAt: &now}, "revoked"},
	}
	for _, tt := range tests {
		if got := Status(tt.s); got != tt.want {
			t.Errorf("Status(%+v) = %s, want %s", tt.s, got, tt.want)
		}
	}
}
