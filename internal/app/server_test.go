package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledgerdesk/internal/config"
	"ledgerdesk/internal/domain/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testAPI struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.AppConfig{
		SessionStore: config.StoreMemory,
		CORSOrigins:  []string{"*"},
		BaseURL:      "http://localhost",
	}
	cfg.JWT.Issuer = "test"
	cfg.JWT.Audience = "test"
	cfg.JWT.TTL = time.Hour

	s := NewServer(cfg, zap.NewNop())
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s.authService.HashCost = bcrypt.MinCost

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = s.Shutdown(context.Background())
	})
	return &testAPI{t: t, srv: srv}
}

func (a *testAPI) do(method, path, token string, body interface{}, out interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	if err != nil {
		a.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		a.t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			a.t.Fatalf("%s %s: data: %v", method, path, err)
		}
	}
	return resp.StatusCode, env
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	resp, err := http.Get(a.srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	a := newTestAPI(t)
	code, env := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "weak", "full_name": "X",
	}, nil)
	if code != http.StatusBadRequest || env.Success {
		t.Fatalf("code = %d env = %+v", code, env)
	}
	var fields []struct {
		Field string `json:"field"`
	}
	if err := json.Unmarshal(env.Data, &fields); err != nil || len(fields) != 2 {
		t.Fatalf("field errors = %s (%v)", env.Data, err)
	}
}

func TestDeviceApprovalFlow(t *testing.T) {
	a := newTestAPI(t)

	var main auth.LoginResponse
	code, _ := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "boss@acme.io", "password": "Secret123", "full_name": "Boss", "device_name": "desk",
	}, &main)
	if code != http.StatusCreated || !main.IsMainDevice {
		t.Fatalf("register: %d %+v", code, main)
	}

	var second auth.LoginResponse
	code, env := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "boss@acme.io", "password": "Secret123", "device_name": "phone",
	}, &second)
	if code != http.StatusOK || second.Approved {
		t.Fatalf("second login: %d %+v", code, env)
	}

	// a pending device can read its profile but not change anything
	if code, _ := a.do(http.MethodGet, "/api/auth/profile", second.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("pending profile read = %d", code)
	}
	if code, _ := a.do(http.MethodPut, "/api/auth/profile", second.Token, map[string]string{"phone": "1"}, nil); code != http.StatusForbidden {
		t.Fatalf("pending profile write = %d", code)
	}

	var own []auth.Session
	a.do(http.MethodGet, "/api/auth/sessions", second.Token, nil, &own)
	if len(own) != 1 || own[0].ID != second.SessionID || !own[0].IsCurrent {
		t.Fatalf("pending device sees %+v", own)
	}

	var all []auth.Session
	a.do(http.MethodGet, "/api/auth/sessions", main.Token, nil, &all)
	if len(all) != 2 {
		t.Fatalf("main device sees %d sessions", len(all))
	}

	code, _ = a.do(http.MethodPost, "/api/auth/sessions/approve", main.Token, map[string]string{"sid": second.SessionID}, nil)
	if code != http.StatusOK {
		t.Fatalf("approve = %d", code)
	}

	// approved but not main
	code, _ = a.do(http.MethodPost, "/api/auth/sessions/revoke-others", second.Token, nil, nil)
	if code != http.StatusForbidden {
		t.Fatalf("non-main revoke-others = %d", code)
	}

	code, _ = a.do(http.MethodPost, "/api/auth/sessions/transfer-main", main.Token, map[string]string{"sid": second.SessionID}, nil)
	if code != http.StatusOK {
		t.Fatalf("transfer = %d", code)
	}

	var revoked auth.RevokeOthersResponse
	code, _ = a.do(http.MethodPost, "/api/auth/sessions/revoke-others", second.Token, nil, &revoked)
	if code != http.StatusOK || len(revoked.Revoked) != 1 || revoked.Revoked[0] != main.SessionID {
		t.Fatalf("revoke-others = %d %+v", code, revoked)
	}

	// the old main device is signed out
	if code, _ := a.do(http.MethodGet, "/api/auth/profile", main.Token, nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("revoked token still works: %d", code)
	}
}

func TestRejectedDeviceCanSeeStatus(t *testing.T) {
	a := newTestAPI(t)

	var main, pending auth.LoginResponse
	a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "boss@acme.io", "password": "Secret123", "full_name": "Boss",
	}, &main)
	a.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "boss@acme.io", "password": "Secret123",
	}, &pending)

	code, _ := a.do(http.MethodPost, "/api/auth/sessions/revoke", main.Token, map[string]string{"sid": pending.SessionID}, nil)
	if code != http.StatusOK {
		t.Fatalf("revoke = %d", code)
	}

	var own []auth.Session
	code, _ = a.do(http.MethodGet, "/api/auth/sessions", pending.Token, nil, &own)
	if code != http.StatusOK || len(own) != 1 || own[0].Status() != auth.SessionRejected {
		t.Fatalf("rejected poll = %d %+v", code, own)
	}

	code, _ = a.do(http.MethodPost, "/api/auth/sessions/approve", main.Token, map[string]string{"sid": pending.SessionID}, nil)
	if code == http.StatusOK {
		t.Fatal("revoked session was approved")
	}
}

func TestEmployeesRequireManager(t *testing.T) {
	a := newTestAPI(t)

	var boss auth.LoginResponse
	a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "boss@acme.io", "password": "Secret123", "full_name": "Boss",
	}, &boss)

	code, _ := a.do(http.MethodPost, "/api/auth/employees", boss.Token, map[string]string{
		"email": "clerk@acme.io", "password": "Clerk1234", "full_name": "Clerk",
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("create employee = %d", code)
	}

	var clerk auth.LoginResponse
	a.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "clerk@acme.io", "password": "Clerk1234",
	}, &clerk)
	if clerk.User.Role != auth.RoleEmployee || !clerk.IsMainDevice {
		t.Fatalf("clerk login = %+v", clerk)
	}

	if code, _ := a.do(http.MethodGet, "/api/auth/employees", clerk.Token, nil, nil); code != http.StatusForbidden {
		t.Fatalf("employee listing staff = %d", code)
	}

	var staff []auth.UserInfo
	a.do(http.MethodGet, "/api/auth/employees", boss.Token, nil, &staff)
	if len(staff) != 1 || staff[0].Email != "clerk@acme.io" {
		t.Fatalf("staff = %+v", staff)
	}
}

func TestLogoutBlacklistsToken(t *testing.T) {
	a := newTestAPI(t)

	var boss auth.LoginResponse
	a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "boss@acme.io", "password": "Secret123", "full_name": "Boss",
	}, &boss)

	if code, _ := a.do(http.MethodPost, "/api/auth/logout", boss.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("logout = %d", code)
	}
	if code, _ := a.do(http.MethodGet, "/api/auth/sessions", boss.Token, nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("blacklisted token = %d", code)
	}
}
