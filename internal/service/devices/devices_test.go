package devices

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ledgerdesk/internal/domain/auth"
	wstypes "ledgerdesk/internal/domain/websocket"
	xerrors "ledgerdesk/internal/pkg/errors"
	"ledgerdesk/internal/pkg/jwt"
	"ledgerdesk/internal/pkg/session"
	"ledgerdesk/internal/repository/memory"
	authsvc "ledgerdesk/internal/service/auth"
	"ledgerdesk/internal/service/email"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type recorder struct {
	mu        sync.Mutex
	events    []wstypes.EventType
	loggedOut []string
}

func (r *recorder) NotifySession(_ int64, t wstypes.EventType, _ wstypes.SessionEventData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, t)
}

func (r *recorder) ForceLogout(_ int64, ids []string, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loggedOut = append(r.loggedOut, ids...)
}

func (r *recorder) has(t wstypes.EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == t {
			return true
		}
	}
	return false
}

type fixture struct {
	auth    *authsvc.AuthService
	devices *Service
	manager *session.Manager
	events  *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository()
	jm, err := jwt.Ephemeral(jwt.Config{Issuer: "test", Audience: "test", TTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	mgr := session.NewManager(session.NewMemoryStore(), sessions, users, logger)
	rec := &recorder{}

	a := authsvc.NewAuthService(users, sessions, jm, mgr, session.NewMemoryRateLimiter(),
		email.NewLogSender(logger), rec, "http://localhost", logger)
	a.HashCost = bcrypt.MinCost

	return &fixture{
		auth:    a,
		devices: NewService(sessions, mgr, rec, logger),
		manager: mgr,
		events:  rec,
	}
}

func (f *fixture) caller(t *testing.T, resp *auth.LoginResponse) *session.SessionData {
	t.Helper()
	data, err := f.manager.Resolve(context.Background(), resp.User.ID, resp.SessionID)
	if err != nil {
		t.Fatalf("Resolve(%s): %v", resp.SessionID, err)
	}
	return data
}

func (f *fixture) twoDevices(t *testing.T) (main, second *auth.LoginResponse) {
	t.Helper()
	ctx := context.Background()
	main, err := f.auth.Register(ctx, &auth.RegisterRequest{
		Email: "boss@acme.io", Password: "Secret123", FullName: "Boss", DeviceName: "laptop",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	second, err = f.auth.Login(ctx, &auth.LoginRequest{
		Email: "boss@acme.io", Password: "Secret123", DeviceName: "phone", IPAddress: "10.0.0.2",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return main, second
}

func TestSecondDeviceStartsPending(t *testing.T) {
	f := newFixture(t)
	main, second := f.twoDevices(t)

	if !main.Approved || !main.IsMainDevice {
		t.Fatalf("first device should bootstrap as approved main: %+v", main)
	}
	if second.Approved || second.IsMainDevice {
		t.Fatalf("second device should be pending: %+v", second)
	}
	if !f.events.has(wstypes.EventTypeSessionPending) {
		t.Fatal("expected session:pending event")
	}
}

func TestOnlyMainDeviceMayApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	main, second := f.twoDevices(t)

	err := f.devices.Approve(ctx, f.caller(t, second), second.SessionID)
	if !errors.Is(err, xerrors.ErrNotMainDevice) {
		t.Fatalf("pending device approving itself: %v", err)
	}

	if err := f.devices.Approve(ctx, f.caller(t, main), second.SessionID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if !f.caller(t, second).Approved {
		t.Fatal("cached session should reflect approval")
	}
	if !f.events.has(wstypes.EventTypeSessionApproved) {
		t.Fatal("expected session:approved event")
	}
}

func TestPendingCallerSeesOnlyItself(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	main, second := f.twoDevices(t)

	list, err := f.devices.List(ctx, f.caller(t, second))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != second.SessionID || !list[0].IsCurrent {
		t.Fatalf("pending list = %+v", list)
	}

	list, err = f.devices.List(ctx, f.caller(t, main))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("main device should see 2 sessions, got %d", len(list))
	}
	for _, s := range list {
		if s.IsCurrent != (s.ID == main.SessionID) {
			t.Errorf("is_current wrong for %s", s.ID)
		}
	}
}

func TestRevokedPendingSessionIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	main, second := f.twoDevices(t)
	mainCaller := f.caller(t, main)

	if err := f.devices.Revoke(ctx, mainCaller, second.SessionID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	list, err := f.devices.List(ctx, f.caller(t, second))
	if err != nil {
		t.Fatal(err)
	}
	if list[0].Status() != auth.SessionRejected || list[0].Approved {
		t.Fatalf("revoked pending session = %+v", list[0])
	}

	err = f.devices.Approve(ctx, mainCaller, second.SessionID)
	if !errors.Is(err, xerrors.ErrSessionRevoked) {
		t.Fatalf("approving revoked session: %v", err)
	}
	if err := f.devices.Revoke(ctx, mainCaller, main.SessionID); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Fatalf("revoking own session: %v", err)
	}
}

func TestTransferMainDevice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	main, second := f.twoDevices(t)

	if err := f.devices.TransferMain(ctx, f.caller(t, main), second.SessionID); !errors.Is(err, xerrors.ErrSessionNotActive) {
		t.Fatalf("transfer to pending session: %v", err)
	}
	if err := f.devices.Approve(ctx, f.caller(t, main), second.SessionID); err != nil {
		t.Fatal(err)
	}
	if err := f.devices.TransferMain(ctx, f.caller(t, main), second.SessionID); err != nil {
		t.Fatalf("TransferMain: %v", err)
	}

	list, err := f.devices.List(ctx, f.caller(t, second))
	if err != nil {
		t.Fatal(err)
	}
	mains := 0
	for _, s := range list {
		if s.IsMainDevice {
			mains++
		}
	}
	if mains != 1 {
		t.Fatalf("main devices after transfer = %d", mains)
	}

	// the old main lost its privileges
	if _, err := f.devices.RevokeOthers(ctx, f.caller(t, main)); !errors.Is(err, xerrors.ErrNotMainDevice) {
		t.Fatalf("old main revoking others: %v", err)
	}
}

func TestRevokeOthers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	main, second := f.twoDevices(t)

	ids, err := f.devices.RevokeOthers(ctx, f.caller(t, main))
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != second.SessionID {
		t.Fatalf("revoked = %v", ids)
	}
	if !f.caller(t, second).IsRevoked() {
		t.Fatal("second session should be revoked in cache")
	}
	if f.caller(t, main).IsRevoked() {
		t.Fatal("caller session must survive")
	}
}
