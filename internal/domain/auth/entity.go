// internal/domain/auth/entity.go
package auth

import (
	"time"
)

// Roles
const (
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

// User statuses
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Session statuses as seen by a device waiting for approval.
const (
	SessionPending  = "pending"
	SessionApproved = "approved"
	SessionRejected = "rejected"
	SessionRevoked  = "revoked"
)

// User is a manager or one of the manager's employees.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	Role         string    `json:"role" db:"role"`
	ManagerID    *int64    `json:"manager_id,omitempty" db:"manager_id"`
	Status       string    `json:"status" db:"status"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IsManager reports whether the user owns a company account.
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

// Info strips the user down to what login and profile responses carry.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Role:      u.Role,
		ManagerID: u.ManagerID,
	}
}

// Session is one device login. A session is pending until the user's main
// device approves it; revoking a session ends it for good.
type Session struct {
	ID           string     `json:"sid" db:"id"`
	UserID       int64      `json:"-" db:"user_id"`
	DeviceName   string     `json:"device_name" db:"device_name"`
	DeviceID     string     `json:"device_id" db:"device_id"`
	IP           string     `json:"ip" db:"ip"`
	UserAgent    string     `json:"user_agent" db:"user_agent"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastSeen     time.Time  `json:"last_seen" db:"last_seen"`
	ExpiresAt    time.Time  `json:"-" db:"expires_at"`
	Approved     bool       `json:"approved" db:"approved"`
	ApprovedAt   *time.Time `json:"approved_at" db:"approved_at"`
	RevokedAt    *time.Time `json:"revoked_at" db:"revoked_at"`
	IsMainDevice bool       `json:"is_main_device" db:"is_main_device"`
	IsCurrent    bool       `json:"is_current" db:"-"`
}

// IsRevoked reports whether the session was terminated.
func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

// Status folds the approval and revocation fields into one state.
func (s *Session) Status() string {
	switch {
	case s.RevokedAt != nil && s.ApprovedAt == nil:
		return SessionRejected
	case s.RevokedAt != nil:
		return SessionRevoked
	case s.Approved:
		return SessionApproved
	default:
		return SessionPending
	}
}

// HomeRoute is where a freshly approved user lands.
func HomeRoute(role string) string {
	if role == RoleEmployee {
		return "/employee/home"
	}
	return "/home"
}
