// internal/domain/auth/dto.go
package auth

import "time"

// RegisterRequest for manager registration
type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,password"`
	FullName   string `json:"full_name" binding:"required"`
	Phone      string `json:"phone"`
	DeviceName string `json:"device_name"`
	DeviceID   string `json:"device_id"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

// LoginRequest for user login
type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	DeviceName string `json:"device_name"`
	DeviceID   string `json:"device_id"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
}

// LoginResponse successful login response
type LoginResponse struct {
	Token        string    `json:"token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	SessionID    string    `json:"session_id"`
	Approved     bool      `json:"approved"`
	IsMainDevice bool      `json:"is_main_device"`
	User         UserInfo  `json:"user"`
}

// UserInfo minimal user information
type UserInfo struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	ManagerID *int64 `json:"manager_id,omitempty"`
}

// SessionActionRequest targets one session of the caller.
type SessionActionRequest struct {
	SID string `json:"sid" binding:"required"`
}

// RevokeOthersResponse lists what revoke-others terminated.
type RevokeOthersResponse struct {
	Revoked []string `json:"revoked"`
}

// SessionStatusResponse is what a waiting device polls for.
type SessionStatusResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// ChangePasswordRequest for password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,password"`
}

// ForgotPasswordRequest for password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest for completing password reset
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,password"`
}

// UpdateProfileRequest for profile updates
type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// CreateEmployeeRequest is sent by a manager adding staff.
type CreateEmployeeRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,password"`
}

// EmployeeFilter narrows an employee listing.
type EmployeeFilter struct {
	Roles  []string
	Status string
}
