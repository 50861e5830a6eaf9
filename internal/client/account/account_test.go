package account

import (
	"context"
	"errors"
	"testing"

	"ledgerdesk/internal/client/api"
	"ledgerdesk/internal/client/credentials"
	"ledgerdesk/internal/pkg/validate"
)

type fakeBackend struct {
	result    *api.LoginResult
	logoutErr error
	calls     int
	lastLogin api.LoginInput
}

func (f *fakeBackend) Login(_ context.Context, in api.LoginInput) (*api.LoginResult, error) {
	f.calls++
	f.lastLogin = in
	return f.result, nil
}

func (f *fakeBackend) Register(_ context.Context, _ api.RegisterInput) (*api.LoginResult, error) {
	f.calls++
	return f.result, nil
}

func (f *fakeBackend) Logout(context.Context) error {
	f.calls++
	return f.logoutErr
}

func (f *fakeBackend) ChangePassword(context.Context, string, string) error { return nil }
func (f *fakeBackend) ForgotPassword(context.Context, string) error         { return nil }
func (f *fakeBackend) ResetPassword(context.Context, string, string) error  { return nil }

func newStore(t *testing.T) *credentials.Store {
	t.Helper()
	s, err := credentials.Open(&credentials.MemoryBackend{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoginHomeRoute(t *testing.T) {
	tests := []struct {
		role     string
		approved bool
		home     string
	}{
		{"Manager", true, "/home"},
		{"Employee", true, "/employee/home"},
		{"Manager", false, ""},
	}
	for _, tt := range tests {
		store := newStore(t)
		backend := &fakeBackend{result: &api.LoginResult{
			Token:     "tok",
			SessionID: "sid",
			Approved:  tt.approved,
			User:      api.User{ID: 1, Email: "a@b.co", Role: tt.role},
		}}
		svc := NewService(backend, store, nil)

		out, err := svc.Login(context.Background(), "a@b.co", "whatever")
		if err != nil {
			t.Fatal(err)
		}
		if out.Home != tt.home {
			t.Errorf("role %s approved=%v: home = %q, want %q", tt.role, tt.approved, out.Home, tt.home)
		}
		u, err := store.User()
		if err != nil || u.Role != tt.role || store.SessionID() != "sid" {
			t.Errorf("stored user = %+v, %v", u, err)
		}
		if backend.lastLogin.DeviceID == "" || backend.lastLogin.DeviceID != store.Device().ID {
			t.Errorf("login did not carry the device id")
		}
	}
}

func TestLoginValidatesBeforeRequest(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewService(backend, newStore(t), nil)

	_, err := svc.Login(context.Background(), "not-an-email", "")
	var fe validate.FieldErrors
	if !errors.As(err, &fe) || len(fe) != 2 {
		t.Fatalf("err = %v", err)
	}
	if backend.calls != 0 {
		t.Fatal("request sent despite invalid form")
	}

	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "weak", FullName: "A"})
	if !errors.As(err, &fe) {
		t.Fatalf("register err = %v", err)
	}
	if _, ok := fe.Field("password"); !ok {
		t.Fatalf("password not rejected: %v", fe)
	}
}

func TestLogoutClearsEvenWhenRemoteFails(t *testing.T) {
	store := newStore(t)
	_ = store.SetLogin("tok", "sid", credentials.User{Role: "Manager"})

	remote := errors.New("network down")
	svc := NewService(&fakeBackend{logoutErr: remote}, store, nil)

	if err := svc.Logout(context.Background()); !errors.Is(err, remote) {
		t.Fatalf("err = %v", err)
	}
	if store.Token() != "" || store.SignedIn() {
		t.Fatal("credentials survived logout")
	}
}

func TestPasswordForms(t *testing.T) {
	svc := NewService(&fakeBackend{}, newStore(t), nil)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, "old", "short")
	var fe validate.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := fe.Field("new_password"); !ok {
		t.Fatalf("fields = %v", fe)
	}

	if err := svc.ResetPassword(ctx, "", "Valid123"); !errors.As(err, &fe) {
		t.Fatalf("missing token accepted: %v", err)
	}
	if err := svc.ResetPassword(ctx, "tok", "Valid123"); err != nil {
		t.Fatal(err)
	}
}
