// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	xerrors "ledgerdesk/internal/pkg/errors"
	"ledgerdesk/internal/pkg/jwt"
	"ledgerdesk/internal/pkg/response"
	"ledgerdesk/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by Auth.
const (
	ctxUserID    = "user_id"
	ctxSessionID = "sid"
	ctxRole      = "role"
	ctxEmail     = "email"
	ctxSession   = "session"
	ctxTokenExp  = "token_expires_at"
)

type AuthMiddleware struct {
	verifier *jwt.Verifier
	sessions *session.Manager
	logger   *zap.Logger
}

func NewAuthMiddleware(verifier *jwt.Verifier, sessions *session.Manager, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		sessions: sessions,
		logger:   logger,
	}
}

// Auth validates the access token and loads its session. Pending sessions pass;
// revoked ones do not.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return m.authenticate(false)
}

// AuthAllowRevoked is Auth for the routes a rejected device still needs to
// learn its own status.
func (m *AuthMiddleware) AuthAllowRevoked() gin.HandlerFunc {
	return m.authenticate(true)
}

func (m *AuthMiddleware) authenticate(allowRevoked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		claims, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		ctx := c.Request.Context()
		blacklisted, err := m.sessions.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			m.logger.Error("blacklist lookup failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "failed to validate token", xerrors.ErrInternal)
			return
		}
		if blacklisted {
			response.Error(c, http.StatusUnauthorized, "token has been revoked", xerrors.ErrSessionRevoked)
			return
		}

		data, err := m.sessions.Resolve(ctx, claims.UserID, claims.SessionID())
		if err != nil {
			response.FromError(c, "session not found", err)
			return
		}
		if data.IsRevoked() && !allowRevoked {
			response.Error(c, http.StatusUnauthorized, "session has been revoked", xerrors.ErrSessionRevoked)
			return
		}

		if err := m.sessions.Touch(ctx, data); err != nil && !allowRevoked {
			response.Error(c, http.StatusUnauthorized, "session has been revoked", err)
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxSessionID, claims.SessionID())
		c.Set(ctxRole, claims.Role)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxSession, data)
		if claims.ExpiresAt != nil {
			c.Set(ctxTokenExp, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// RequireApproved blocks sessions that are still waiting for the main device.
// MUST be used after Auth()
func (m *AuthMiddleware) RequireApproved() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, ok := GetSession(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}
		if !data.Approved {
			response.Error(c, http.StatusForbidden, "device is awaiting approval", xerrors.ErrSessionPending)
			return
		}
		c.Next()
	}
}

// RequireRole requires the token's role to be one of roles.
// MUST be used after Auth()
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.Error(c, http.StatusForbidden, "insufficient permissions", xerrors.ErrForbidden, map[string]interface{}{
			"required_roles": roles,
			"user_role":      role,
		})
	}
}

// Approved returns Auth + RequireApproved.
func (m *AuthMiddleware) Approved() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireApproved(),
	}
}

// ExtractToken reads a Bearer token from the Authorization header, falling back
// to the token query parameter.
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// websocket clients cannot set headers from every runtime
	return c.Query("token")
}
