// internal/middleware/helpers.go
package middleware

import (
	"time"

	"ledgerdesk/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

// GetUserID gets the authenticated user id from context
func GetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// MustGetUserID gets user ID from context or panics
func MustGetUserID(c *gin.Context) int64 {
	id, exists := GetUserID(c)
	if !exists {
		panic("user_id not found in context")
	}
	return id
}

// GetSessionID gets the caller's session id (the token jti)
func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

// GetRole gets the caller's role
func GetRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// GetSession gets the cached session resolved by Auth
func GetSession(c *gin.Context) (*session.SessionData, bool) {
	v, exists := c.Get(ctxSession)
	if !exists {
		return nil, false
	}
	data, ok := v.(*session.SessionData)
	return data, ok
}

// GetTokenExpiry returns when the presented token expires
func GetTokenExpiry(c *gin.Context) time.Time {
	return c.GetTime(ctxTokenExp)
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(ctxUserID)
	return exists
}
