package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestNormalizeLogin(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		sid      string
		approved bool
		role     string
	}{
		{
			name:     "nested",
			body:     `{"success":true,"message":"ok","data":{"token":"t1","session_id":"s1","approved":true,"user":{"id":1,"email":"a@b.co","role":"Manager"}}}`,
			sid:      "s1",
			approved: true,
			role:     "Manager",
		},
		{
			name: "flat",
			body: `{"access_token":"t2","sid":"s2","approved":false,"user":{"id":2,"email":"e@b.co","role":"Employee"}}`,
			sid:  "s2",
			role: "Employee",
		},
		{
			name:     "flat user fields",
			body:     `{"token":"t3","sid":"s3","approved":true,"id":3,"email":"f@b.co","role":"Manager"}`,
			sid:      "s3",
			approved: true,
			role:     "Manager",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := normalizeLogin([]byte(tt.body))
			if err != nil {
				t.Fatalf("normalizeLogin: %v", err)
			}
			if res.SessionID != tt.sid || res.Approved != tt.approved || res.User.Role != tt.role {
				t.Fatalf("got %+v", res)
			}
		})
	}

	if _, err := normalizeLogin([]byte(`{"success":true,"data":{"user":{"role":"Manager"}}}`)); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestClientErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("authorization header = %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "session action failed",
			"error":   "only the main device can perform this action",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok"), nil)
	err := c.ApproveSession(context.Background(), "x")

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Status != http.StatusForbidden || !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("status = %d", apiErr.Status)
	}
	if apiErr.Message != "session action failed: only the main device can perform this action" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestClientSuccessFalseWith200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"insufficient funds"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil, nil).SendETH(context.Background(), SendInput{ToAddress: "0x0", Amount: decimal.NewFromInt(1)})
	if err == nil || err.Error() != "insufficient funds (HTTP 200)" {
		t.Fatalf("err = %v", err)
	}
}

func TestSessionsDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/sessions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[{"sid":"a","approved":true,"is_main_device":true,"is_current":true},{"sid":"b","approved":false,"revoked_at":"2026-01-02T15:04:05Z"}]}`))
	}))
	defer srv.Close()

	list, err := New(srv.URL+"/api/", nil, nil).Sessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || !list[0].IsMainDevice || list[1].RevokedAt == nil {
		t.Fatalf("sessions = %+v", list)
	}
}

func TestDecodeWallets(t *testing.T) {
	for _, body := range []string{
		`[{"address":"0xabc","eth_balance":"1.5","usd_value":3000}]`,
		`{"wallets":[{"address":"0xabc","eth_balance":1.5,"usd_value":"3000"}]}`,
	} {
		list, err := decodeWallets([]byte(body))
		if err != nil || len(list) != 1 {
			t.Fatalf("decodeWallets(%s) = %v, %v", body, list, err)
		}
		if !list[0].ETHBalance.Equal(decimal.RequireFromString("1.5")) {
			t.Fatalf("balance = %s", list[0].ETHBalance)
		}
	}
}

func TestDecodePDF(t *testing.T) {
	raw := []byte("%PDF-1.4 test")
	enc := base64.StdEncoding.EncodeToString(raw)

	for _, body := range []string{
		`{"pdf":"` + enc + `"}`,
		`{"pdf_base64":"data:application/pdf;base64,` + enc + `"}`,
		`"` + enc + `"`,
	} {
		got, err := decodePDF([]byte(body))
		if err != nil || string(got) != string(raw) {
			t.Fatalf("decodePDF(%s) = %q, %v", body, got, err)
		}
	}

	notPDF := base64.StdEncoding.EncodeToString([]byte("hello"))
	if _, err := decodePDF([]byte(`{"pdf":"` + notPDF + `"}`)); err == nil {
		t.Fatal("non-pdf accepted")
	}
}
