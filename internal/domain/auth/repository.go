// internal/domain/auth/repository.go
package auth

import (
	"context"
	"time"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	FindUserByID(ctx context.Context, id int64) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateProfile(ctx context.Context, id int64, fullName, phone string) error
	ListEmployees(ctx context.Context, managerID int64, filter EmployeeFilter) ([]User, error)
}

// SessionRepository persists device sessions. Implementations must keep at most
// one live main-device session per user and must never leave a session both
// approved and revoked.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	FindSessionByID(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, userID int64) ([]Session, error)
	FindMainDevice(ctx context.Context, userID int64, at time.Time) (*Session, error)
	ApproveSession(ctx context.Context, userID int64, id string, at time.Time) error
	RevokeSession(ctx context.Context, userID int64, id string, at time.Time) error
	RevokeOtherSessions(ctx context.Context, userID int64, keepID string, at time.Time) ([]string, error)
	TransferMainDevice(ctx context.Context, userID int64, fromID, toID string) error
	TouchSession(ctx context.Context, id string, at time.Time) (bool, error)
}
