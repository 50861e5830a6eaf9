package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerdesk/internal/domain/auth"
	xerrors "ledgerdesk/internal/pkg/errors"
)

func seed(t *testing.T, r *SessionRepository, id string, main bool) {
	t.Helper()
	now := time.Now()
	s := &auth.Session{ID: id, UserID: 1, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if main {
		s.Approved, s.ApprovedAt, s.IsMainDevice = true, &now, true
	}
	if err := r.CreateSession(context.Background(), s); err != nil {
		t.Fatalf("CreateSession(%s): %v", id, err)
	}
}

func TestSecondMainDeviceRejected(t *testing.T) {
	r := NewSessionRepository()
	seed(t, r, "a", true)

	now := time.Now()
	err := r.CreateSession(context.Background(), &auth.Session{
		ID: "b", UserID: 1, Approved: true, ApprovedAt: &now, IsMainDevice: true, CreatedAt: now,
	})
	if !errors.Is(err, xerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestExpiredMainDevice(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	tests := []struct {
		name      string
		expiresAt time.Time
		wantMain  string
		wantErr   error
	}{
		{name: "live main blocks", expiresAt: now.Add(time.Hour), wantMain: "a", wantErr: xerrors.ErrConflict},
		{name: "expired main yields", expiresAt: now.Add(-time.Minute), wantMain: "b"},
		{name: "expiring now yields", expiresAt: now, wantMain: "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSessionRepository()
			created := tt.expiresAt.Add(-time.Hour)
			err := r.CreateSession(ctx, &auth.Session{
				ID:           "a",
				UserID:       1,
				Approved:     true,
				ApprovedAt:   &created,
				IsMainDevice: true,
				CreatedAt:    created,
				ExpiresAt:    tt.expiresAt,
			})
			if err != nil {
				t.Fatal(err)
			}

			if _, err := r.FindMainDevice(ctx, 1, now); tt.wantErr == nil && !errors.Is(err, xerrors.ErrNotFound) {
				t.Fatalf("FindMainDevice on expired main: %v", err)
			}

			err = r.CreateSession(ctx, &auth.Session{
				ID:           "b",
				UserID:       1,
				Approved:     true,
				ApprovedAt:   &now,
				IsMainDevice: true,
				CreatedAt:    now,
				ExpiresAt:    now.Add(time.Hour),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateSession = %v, want %v", err, tt.wantErr)
			}

			main, err := r.FindMainDevice(ctx, 1, now)
			if err != nil || main.ID != tt.wantMain {
				t.Fatalf("main device = %+v, %v; want %s", main, err, tt.wantMain)
			}
			list, _ := r.ListSessions(ctx, 1)
			mains := 0
			for _, s := range list {
				if s.IsMainDevice {
					mains++
				}
			}
			if mains != 1 {
				t.Fatalf("main devices = %d, want 1", mains)
			}
		})
	}
}

func TestTouchSession(t *testing.T) {
	ctx := context.Background()
	r := NewSessionRepository()
	seed(t, r, "a", true)
	seed(t, r, "b", false)
	_ = r.RevokeSession(ctx, 1, "b", time.Now())

	tests := []struct {
		id   string
		want bool
	}{
		{id: "a", want: true},
		{id: "b", want: false},
		{id: "missing", want: false},
	}
	for _, tt := range tests {
		touched, err := r.TouchSession(ctx, tt.id, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		if touched != tt.want {
			t.Errorf("TouchSession(%s) = %v, want %v", tt.id, touched, tt.want)
		}
	}
}

func TestRevokeClearsApproval(t *testing.T) {
	ctx := context.Background()
	r := NewSessionRepository()
	seed(t, r, "a", true)
	seed(t, r, "b", false)

	if err := r.ApproveSession(ctx, 1, "b", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := r.RevokeSession(ctx, 1, "b", time.Now()); err != nil {
		t.Fatal(err)
	}
	s, _ := r.FindSessionByID(ctx, "b")
	if s.Approved || s.RevokedAt == nil || s.ApprovedAt == nil {
		t.Fatalf("revoked session state wrong: %+v", s)
	}
	if s.Status() != auth.SessionRevoked {
		t.Fatalf("status = %s", s.Status())
	}
	if err := r.ApproveSession(ctx, 1, "b", time.Now()); !errors.Is(err, xerrors.ErrSessionRevoked) {
		t.Fatalf("approving revoked session: %v", err)
	}
}

func TestTransferKeepsSingleMain(t *testing.T) {
	ctx := context.Background()
	r := NewSessionRepository()
	seed(t, r, "a", true)
	seed(t, r, "b", false)

	if err := r.TransferMainDevice(ctx, 1, "a", "b"); !errors.Is(err, xerrors.ErrSessionNotActive) {
		t.Fatalf("transfer to pending session: %v", err)
	}
	if err := r.ApproveSession(ctx, 1, "b", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := r.TransferMainDevice(ctx, 1, "a", "b"); err != nil {
		t.Fatalf("TransferMainDevice: %v", err)
	}

	list, _ := r.ListSessions(ctx, 1)
	mains := 0
	for _, s := range list {
		if s.IsMainDevice {
			mains++
			if s.ID != "b" {
				t.Errorf("main device = %s, want b", s.ID)
			}
		}
	}
	if mains != 1 {
		t.Fatalf("main devices = %d, want 1", mains)
	}
}

func TestRevokeOthersSkipsKeptAndRevoked(t *testing.T) {
	ctx := context.Background()
	r := NewSessionRepository()
	seed(t, r, "a", true)
	seed(t, r, "b", false)
	seed(t, r, "c", false)
	_ = r.RevokeSession(ctx, 1, "c", time.Now())

	ids, err := r.RevokeOtherSessions(ctx, 1, "a", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("revoked ids = %v, want [b]", ids)
	}
}
