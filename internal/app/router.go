// internal/app/router.go
package app

import (
	"net/http"
	"time"

	"ledgerdesk/internal/domain/auth"
	authHandler "ledgerdesk/internal/handlers/auth"
	sessionHandler "ledgerdesk/internal/handlers/session"
	wsHandler "ledgerdesk/internal/handlers/websocket"
	"ledgerdesk/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	SessionHandler *sessionHandler.SessionHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// CORSConfig builds the cors settings for the given origins; "*" allows any.
func CORSConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api")
	mw := h.AuthMiddleware

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	api.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/forgot-password", h.AuthHandler.ForgotPassword)
		authPublic.POST("/reset-password", h.AuthHandler.ResetPassword)
	}

	// ==================== Any Live Session (pending included) ====================
	authLive := api.Group("/auth")
	authLive.Use(mw.Auth())
	{
		authLive.POST("/logout", h.AuthHandler.Logout)
		authLive.GET("/profile", h.AuthHandler.GetProfile)
		authLive.GET("/ws/stats", h.WSHandler.GetStats)
	}

	// status polling must also answer a rejected device
	api.GET("/auth/sessions", mw.AuthAllowRevoked(), h.SessionHandler.List)

	// ==================== Approved Sessions ====================
	authApproved := api.Group("/auth")
	authApproved.Use(mw.Approved()...)
	{
		authApproved.POST("/change-password", h.AuthHandler.ChangePassword)
		authApproved.PUT("/profile", h.AuthHandler.UpdateProfile)

		// main-device checks happen in the devices service
		sessions := authApproved.Group("/sessions")
		{
			sessions.POST("/approve", h.SessionHandler.Approve)
			sessions.POST("/revoke", h.SessionHandler.Revoke)
			sessions.POST("/revoke-others", h.SessionHandler.RevokeOthers)
			sessions.POST("/transfer-main", h.SessionHandler.TransferMain)
		}

		employees := authApproved.Group("/employees")
		employees.Use(mw.RequireRole(auth.RoleManager))
		{
			employees.GET("", h.AuthHandler.ListEmployees)
			employees.POST("", h.AuthHandler.CreateEmployee)
		}
	}

	// ==================== 404 Handler ====================
	r.NoRoute(func(c *gin.Context) {
		logger.Debug("route not found", zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "route not found",
			"path":    c.Request.URL.Path,
		})
	})
}
