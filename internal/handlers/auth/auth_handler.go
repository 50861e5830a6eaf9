// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"

	"ledgerdesk/internal/domain/auth"
	"ledgerdesk/internal/middleware"
	xerrors "ledgerdesk/internal/pkg/errors"
	"ledgerdesk/internal/pkg/response"
	authUsecase "ledgerdesk/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// ========== Registration ==========

// Register creates a manager account (public endpoint)
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("registration failed",
			zap.String("email", req.Email),
			zap.Error(err),
		)
		response.FromError(c, "registration failed", err)
		return
	}

	response.Success(c, http.StatusCreated, "registration successful", loginResp)
}

// ========== Login ==========

// Login opens a session for the calling device
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("email", req.Email),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.FromError(c, "login failed", err)
		return
	}

	message := "login successful"
	if !loginResp.Approved {
		message = "device awaiting approval"
	}
	response.Success(c, http.StatusOK, message, loginResp)
}

// ========== Logout ==========

// Logout ends the caller's session (requires auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	sid := middleware.GetSessionID(c)

	if err := h.authService.Logout(c.Request.Context(), userID, sid, middleware.GetTokenExpiry(c)); err != nil {
		h.logger.Error("logout failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		response.FromError(c, "logout failed", err)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// ========== Password Management ==========

// ChangePassword handles password change (requires approved session)
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	var req auth.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, middleware.GetSessionID(c), &req); err != nil {
		response.FromError(c, "password change failed", err)
		return
	}

	response.Success(c, http.StatusOK, "password changed successfully", nil)
}

// ForgotPassword handles password reset request
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req auth.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, xerrors.ErrRateLimited) {
			response.FromError(c, "password reset failed", err)
			return
		}
		h.logger.Error("forgot password failed",
			zap.String("email", req.Email),
			zap.Error(err),
		)
	}

	// Always return success to prevent email enumeration
	response.Success(c, http.StatusOK, "if email exists, reset link has been sent", nil)
}

// ResetPassword handles password reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req auth.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		response.FromError(c, "password reset failed", err)
		return
	}

	response.Success(c, http.StatusOK, "password reset successful", nil)
}

// ========== Profile ==========

// GetProfile returns current user profile (requires auth)
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	profile, err := h.authService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, "failed to get profile", err)
		return
	}

	response.Success(c, http.StatusOK, "profile retrieved", profile)
}

// UpdateProfile updates user profile (requires approved session)
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	var req auth.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	profile, err := h.authService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		response.FromError(c, "failed to update profile", err)
		return
	}

	response.Success(c, http.StatusOK, "profile updated", profile)
}

// ========== Employees (manager only) ==========

// CreateEmployee adds a staff account under the caller
func (h *AuthHandler) CreateEmployee(c *gin.Context) {
	managerID := middleware.MustGetUserID(c)

	var req auth.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	employee, err := h.authService.CreateEmployee(c.Request.Context(), managerID, &req)
	if err != nil {
		response.FromError(c, "failed to create employee", err)
		return
	}

	response.Success(c, http.StatusCreated, "employee created", employee)
}

// ListEmployees lists the caller's staff. Filters: ?role=...&status=...
func (h *AuthHandler) ListEmployees(c *gin.Context) {
	managerID := middleware.MustGetUserID(c)

	filter := auth.EmployeeFilter{
		Roles:  c.QueryArray("role"),
		Status: c.Query("status"),
	}

	employees, err := h.authService.ListEmployees(c.Request.Context(), managerID, filter)
	if err != nil {
		response.FromError(c, "failed to list employees", err)
		return
	}

	response.Success(c, http.StatusOK, "employees retrieved", employees)
}
