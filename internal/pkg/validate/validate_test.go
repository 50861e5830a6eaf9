package validate

import (
	"errors"
	"testing"
)

type signup struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,password"`
}

func TestPassword(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"", false},
		{"short1A", false},
		{"alllowercase1", false},
		{"ALLUPPER123", false},
		{"NoDigitsHere", false},
		{"Valid123", true},
	}
	for _, tt := range tests {
		err := Password(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("Password(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
		}
	}
}

func TestEmail(t *testing.T) {
	if err := Email("user@example.com"); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
	for _, bad := range []string{"", "nope", "a@"} {
		if err := Email(bad); err == nil {
			t.Errorf("Email(%q) accepted", bad)
		}
	}
}

func TestStructFieldErrors(t *testing.T) {
	err := Struct(signup{Email: "bad", Password: "weak"})
	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %T: %v", err, err)
	}
	if _, ok := fe.Field("email"); !ok {
		t.Error("email should be rejected")
	}
	if msg, ok := fe.Field("password"); !ok || msg == "" {
		t.Error("password should be rejected with a message")
	}

	if err := Struct(signup{Email: "a@b.co", Password: "Valid123"}); err != nil {
		t.Fatalf("valid form rejected: %v", err)
	}
}
