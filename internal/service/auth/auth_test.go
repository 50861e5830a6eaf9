package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerdesk/internal/domain/auth"
	xerrors "ledgerdesk/internal/pkg/errors"
	"ledgerdesk/internal/pkg/jwt"
	"ledgerdesk/internal/pkg/session"
	"ledgerdesk/internal/repository/memory"
	"ledgerdesk/internal/service/email"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*AuthService, *memory.SessionRepository) {
	t.Helper()
	logger := zap.NewNop()
	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository()
	jm, err := jwt.Ephemeral(jwt.Config{Issuer: "test", Audience: "test", TTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	mgr := session.NewManager(session.NewMemoryStore(), sessions, users, logger)
	svc := NewAuthService(users, sessions, jm, mgr, session.NewMemoryRateLimiter(),
		email.NewLogSender(logger), nil, "http://localhost", logger)
	svc.HashCost = bcrypt.MinCost
	return svc, sessions
}

func register(t *testing.T, svc *AuthService) *auth.LoginResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &auth.RegisterRequest{
		Email: "Owner@Acme.io", Password: "Secret123", FullName: "Owner", DeviceName: "laptop",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return resp
}

func TestRegisterCreatesManagerOnMainDevice(t *testing.T) {
	svc, _ := newTestService(t)
	resp := register(t, svc)

	if resp.User.Role != auth.RoleManager {
		t.Errorf("role = %q", resp.User.Role)
	}
	if resp.User.Email != "owner@acme.io" {
		t.Errorf("email not normalised: %q", resp.User.Email)
	}
	if !resp.Approved || !resp.IsMainDevice || resp.Token == "" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	claims, err := svc.jwtManager.Verifier.VerifyAccessToken(resp.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.SessionID() != resp.SessionID {
		t.Fatalf("token sid %q != %q", claims.SessionID(), resp.SessionID)
	}

	_, err = svc.Register(context.Background(), &auth.RegisterRequest{
		Email: "owner@acme.io", Password: "Secret123", FullName: "Dup",
	})
	if !errors.Is(err, xerrors.ErrDuplicateEntry) {
		t.Fatalf("duplicate register: %v", err)
	}
}

func TestLoginRateLimited(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc)
	ctx := context.Background()

	req := &auth.LoginRequest{Email: "owner@acme.io", Password: "wrong", IPAddress: "1.2.3.4"}
	for i := 0; i < session.MaxLoginAttempts; i++ {
		if _, err := svc.Login(ctx, req); !errors.Is(err, xerrors.ErrUnauthorized) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	req.Password = "Secret123"
	if _, err := svc.Login(ctx, req); !errors.Is(err, xerrors.ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
}

func TestExpiredMainDeviceDoesNotBlockLogin(t *testing.T) {
	svc, sessions := newTestService(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	first := register(t, svc)
	svc.now = time.Now
	ctx := context.Background()

	resp, err := svc.Login(ctx, &auth.LoginRequest{Email: "owner@acme.io", Password: "Secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !resp.Approved || !resp.IsMainDevice {
		t.Fatalf("login after main device expired should take over: %+v", resp)
	}

	old, _ := sessions.FindSessionByID(ctx, first.SessionID)
	if old.IsMainDevice {
		t.Fatal("expired session kept the main device flag")
	}
	main, err := sessions.FindMainDevice(ctx, first.User.ID, time.Now())
	if err != nil || main.ID != resp.SessionID {
		t.Fatalf("main device = %+v, %v", main, err)
	}
}

func TestChangePasswordRevokesOtherDevices(t *testing.T) {
	svc, sessions := newTestService(t)
	first := register(t, svc)
	ctx := context.Background()

	second, err := svc.Login(ctx, &auth.LoginRequest{Email: "owner@acme.io", Password: "Secret123"})
	if err != nil {
		t.Fatal(err)
	}

	err = svc.ChangePassword(ctx, first.User.ID, first.SessionID, &auth.ChangePasswordRequest{
		CurrentPassword: "Secret123", NewPassword: "Another456",
	})
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	s, _ := sessions.FindSessionByID(ctx, second.SessionID)
	if !s.IsRevoked() {
		t.Fatal("other session should be revoked")
	}
	s, _ = sessions.FindSessionByID(ctx, first.SessionID)
	if s.IsRevoked() || !s.IsMainDevice {
		t.Fatal("current session should stay main")
	}

	if _, err := svc.Login(ctx, &auth.LoginRequest{Email: "owner@acme.io", Password: "Secret123"}); err == nil {
		t.Fatal("old password still works")
	}
}

func TestResetPasswordTokenSingleUse(t *testing.T) {
	svc, _ := newTestService(t)
	resp := register(t, svc)
	ctx := context.Background()

	token, _, err := svc.jwtManager.Generator.GeneratePasswordResetToken(resp.User.ID, resp.User.Email)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.ResetPassword(ctx, token, "Brand9New"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if err := svc.ResetPassword(ctx, token, "Again9New"); !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("reused token: %v", err)
	}

	// every device was signed out, so the next login bootstraps a new main device
	next, err := svc.Login(ctx, &auth.LoginRequest{Email: "owner@acme.io", Password: "Brand9New"})
	if err != nil {
		t.Fatal(err)
	}
	if !next.IsMainDevice {
		t.Fatal("expected new main device after reset")
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.ForgotPassword(context.Background(), "ghost@acme.io"); err != nil {
		t.Fatalf("unknown email should not error: %v", err)
	}
}

func TestEmployees(t *testing.T) {
	svc, _ := newTestService(t)
	mgr := register(t, svc)
	ctx := context.Background()

	emp, err := svc.CreateEmployee(ctx, mgr.User.ID, &auth.CreateEmployeeRequest{
		Email: "clerk@acme.io", FullName: "Clerk", Password: "Clerk1234",
	})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	if emp.Role != auth.RoleEmployee || emp.ManagerID == nil || *emp.ManagerID != mgr.User.ID {
		t.Fatalf("employee = %+v", emp)
	}

	if _, err := svc.CreateEmployee(ctx, emp.ID, &auth.CreateEmployeeRequest{
		Email: "x@acme.io", FullName: "X", Password: "Clerk1234",
	}); !errors.Is(err, xerrors.ErrForbidden) {
		t.Fatalf("employee creating staff: %v", err)
	}

	list, err := svc.ListEmployees(ctx, mgr.User.ID, auth.EmployeeFilter{})
	if err != nil || len(list) != 1 {
		t.Fatalf("ListEmployees = %v, %v", list, err)
	}

	login, err := svc.Login(ctx, &auth.LoginRequest{Email: "clerk@acme.io", Password: "Clerk1234"})
	if err != nil {
		t.Fatal(err)
	}
	if login.User.Role != auth.RoleEmployee || auth.HomeRoute(login.User.Role) != "/employee/home" {
		t.Fatalf("employee login = %+v", login.User)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)
	resp := register(t, svc)

	info, err := svc.UpdateProfile(context.Background(), resp.User.ID, &auth.UpdateProfileRequest{Phone: "+254700000000"})
	if err != nil {
		t.Fatal(err)
	}
	if info.Phone != "+254700000000" || info.FullName != "Owner" {
		t.Fatalf("profile = %+v", info)
	}
}
