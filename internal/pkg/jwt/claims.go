// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token purposes
const (
	PurposeAccess        = "access"
	PurposePasswordReset = "password_reset"
)

// Claims represents the JWT claims. For access tokens the jti is the session id.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	IsTemp   bool   `json:"is_temp"`
	Purpose  string `json:"purpose"`
	jwt.RegisteredClaims
}

// SessionID returns the session bound to the token.
func (c *Claims) SessionID() string {
	return c.ID
}

// HasRole checks the single role carried by the token.
func (c *Claims) HasRole(roles ...string) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}

	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}

	return false
}
