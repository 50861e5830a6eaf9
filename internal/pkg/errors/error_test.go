package xerrors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", Wrap(ErrNotFound, "session abc"), http.StatusNotFound},
		{"not main", fmt.Errorf("approve: %w", ErrNotMainDevice), http.StatusForbidden},
		{"pending", ErrSessionPending, http.StatusForbidden},
		{"revoked", ErrSessionRevoked, http.StatusUnauthorized},
		{"conflict", Wrap(ErrConflict, "email taken"), http.StatusConflict},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	if !Is(Wrap(ErrForbidden, "ctx"), ErrForbidden) {
		t.Fatal("wrapped error should match its sentinel")
	}
}
