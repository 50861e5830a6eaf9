// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledgerdesk/internal/domain/auth"
	wstypes "ledgerdesk/internal/domain/websocket"
	xerrors "ledgerdesk/internal/pkg/errors"
	"ledgerdesk/internal/pkg/jwt"
	"ledgerdesk/internal/pkg/session"
	"ledgerdesk/internal/service/email"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	users          auth.UserRepository
	sessions       auth.SessionRepository
	jwtManager     *jwt.Manager
	sessionManager *session.Manager
	rateLimiter    session.Limiter
	emailHelper    *EmailHelper
	notifier       wstypes.Notifier
	logger         *zap.Logger

	// HashCost is the bcrypt cost for new password hashes.
	HashCost int
	now      func() time.Time
}

func NewAuthService(
	users auth.UserRepository,
	sessions auth.SessionRepository,
	jwtManager *jwt.Manager,
	sessionManager *session.Manager,
	rateLimiter session.Limiter,
	emailSender email.Sender,
	notifier wstypes.Notifier,
	baseURL string,
	logger *zap.Logger,
) *AuthService {
	if notifier == nil {
		notifier = wstypes.NopNotifier{}
	}
	return &AuthService{
		users:          users,
		sessions:       sessions,
		jwtManager:     jwtManager,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		emailHelper:    NewEmailHelper(emailSender, logger, baseURL),
		notifier:       notifier,
		logger:         logger,
		HashCost:       bcrypt.DefaultCost,
		now:            time.Now,
	}
}

// ========== Registration ==========

// Register creates a manager account and signs in its first device, which
// becomes the main device.
func (s *AuthService) Register(ctx context.Context, req *auth.RegisterRequest) (*auth.LoginResponse, error) {
	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &auth.User{
		Email:        strings.TrimSpace(strings.ToLower(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         auth.RoleManager,
		Status:       auth.StatusActive,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("manager registered", zap.Int64("user_id", user.ID), zap.String("email", user.Email))

	return s.openSession(ctx, user, req.DeviceName, req.DeviceID, req.IPAddress, req.UserAgent)
}

// EnsureManagerExists creates a manager account unless the email is taken.
func (s *AuthService) EnsureManagerExists(ctx context.Context, emailAddr, password, fullName string) error {
	_, err := s.users.FindUserByEmail(ctx, emailAddr)
	if err == nil {
		return nil
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		return err
	}

	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	user := &auth.User{
		Email:        strings.TrimSpace(strings.ToLower(emailAddr)),
		FullName:     fullName,
		Role:         auth.RoleManager,
		Status:       auth.StatusActive,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil && !errors.Is(err, xerrors.ErrDuplicateEntry) {
		return err
	}
	s.logger.Info("seed manager ensured", zap.String("email", user.Email))
	return nil
}

// ========== Login ==========

// Login verifies credentials and opens a session. The session is approved only
// when the user has no live main device; otherwise it waits for approval.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	key := session.LoginKey(req.IPAddress, strings.ToLower(req.Email))
	allowed, remaining, err := s.rateLimiter.Hit(ctx, key, session.MaxLoginAttempts, session.LoginWindow)
	if err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return nil, xerrors.Wrap(xerrors.ErrRateLimited, "too many login attempts, try again in 15 minutes")
	}

	user, err := s.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.Wrap(xerrors.ErrUnauthorized, "invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, xerrors.Wrap(xerrors.ErrUnauthorized,
			fmt.Sprintf("invalid credentials (attempts remaining: %d)", remaining))
	}

	if user.Status != auth.StatusActive {
		return nil, xerrors.Wrap(xerrors.ErrForbidden, "account is "+user.Status)
	}

	if err := s.rateLimiter.Reset(ctx, key); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}

	return s.openSession(ctx, user, req.DeviceName, req.DeviceID, req.IPAddress, req.UserAgent)
}

func (s *AuthService) openSession(ctx context.Context, user *auth.User, deviceName, deviceID, ip, userAgent string) (*auth.LoginResponse, error) {
	now := s.now()
	sess := &auth.Session{
		ID:         ulid.Make().String(),
		UserID:     user.ID,
		DeviceName: deviceName,
		DeviceID:   deviceID,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.jwtManager.Generator.Ttl),
	}

	bootstrap := false
	if _, err := s.sessions.FindMainDevice(ctx, user.ID, now); err != nil {
		if !errors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up main device: %w", err)
		}
		bootstrap = true
		sess.Approved = true
		sess.ApprovedAt = &now
		sess.IsMainDevice = true
	}

	err := s.sessions.CreateSession(ctx, sess)
	if bootstrap && errors.Is(err, xerrors.ErrConflict) {
		// another device claimed main first; this one waits like any other
		bootstrap = false
		sess.Approved, sess.ApprovedAt, sess.IsMainDevice = false, nil, false
		err = s.sessions.CreateSession(ctx, sess)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.jwtManager.Generator.GenerateAccessToken(user.ID, user.Role, user.Email, deviceID, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	if err := s.sessionManager.Cache(ctx, sess, user); err != nil {
		s.logger.Warn("failed to cache session", zap.String("sid", sess.ID), zap.Error(err))
	}

	if !sess.Approved {
		s.notifier.NotifySession(user.ID, wstypes.EventTypeSessionPending, wstypes.SessionEventData{
			SessionID:  sess.ID,
			DeviceName: sess.DeviceName,
			IP:         sess.IP,
			Status:     auth.SessionPending,
			Message:    "A new device is waiting for approval",
		})
		s.emailHelper.send(user.Email, "new_device", func() (string, string) {
			return s.emailHelper.NewDeviceEmail(user.FullName, sess.DeviceName, sess.IP)
		})
	}

	s.logger.Info("session opened",
		zap.Int64("user_id", user.ID),
		zap.String("sid", sess.ID),
		zap.Bool("main_device", sess.IsMainDevice),
		zap.Bool("approved", sess.Approved),
		zap.Bool("bootstrap", bootstrap))

	return &auth.LoginResponse{
		Token:        token,
		TokenType:    "Bearer",
		ExpiresAt:    sess.ExpiresAt,
		SessionID:    sess.ID,
		Approved:     sess.Approved,
		IsMainDevice: sess.IsMainDevice,
		User:         user.Info(),
	}, nil
}

// ========== Logout ==========

// Logout ends the caller's session and blacklists its token.
func (s *AuthService) Logout(ctx context.Context, userID int64, sid string, tokenExpiry time.Time) error {
	if err := s.sessions.RevokeSession(ctx, userID, sid, s.now()); err != nil && !errors.Is(err, xerrors.ErrNotFound) {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if err := s.sessionManager.Refresh(ctx, userID, sid); err != nil {
		s.logger.Warn("failed to refresh cached session", zap.String("sid", sid), zap.Error(err))
	}
	if err := s.sessionManager.Blacklist(ctx, sid, tokenExpiry); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	s.notifier.ForceLogout(userID, []string{sid}, "User logged out")
	s.notifier.NotifySession(userID, wstypes.EventTypeSessionRevoked, wstypes.SessionEventData{
		SessionID: sid,
		Status:    auth.SessionRevoked,
		Reason:    "logout",
	})
	return nil
}

// ========== Passwords ==========

// ChangePassword replaces the password and signs out every other device.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentSID string, req *auth.ChangePasswordRequest) error {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "current password is incorrect")
	}

	hash, err := s.hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.revokeAllExcept(ctx, userID, currentSID, "password changed"); err != nil {
		return err
	}

	s.emailHelper.send(user.Email, "password_changed", func() (string, string) {
		return s.emailHelper.PasswordChangedEmail(user.FullName)
	})
	return nil
}

// ForgotPassword mails a reset link. Unknown emails succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	allowed, _, err := s.rateLimiter.Hit(ctx, session.PasswordResetKey(strings.ToLower(emailAddr)),
		session.MaxResetAttempts, session.PasswordResetWindow)
	if err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return xerrors.Wrap(xerrors.ErrRateLimited, "too many password reset attempts, try again later")
	}

	user, err := s.users.FindUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil
		}
		return err
	}

	token, _, err := s.jwtManager.Generator.GeneratePasswordResetToken(user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	s.emailHelper.send(user.Email, "password_reset", func() (string, string) {
		return s.emailHelper.PasswordResetEmail(user.FullName, token)
	})
	return nil
}

// ResetPassword consumes a reset token and signs out every device.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.jwtManager.Verifier.VerifyPasswordResetToken(token)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrUnauthorized, "invalid or expired reset token")
	}

	used, err := s.sessionManager.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return err
	}
	if used {
		return xerrors.Wrap(xerrors.ErrUnauthorized, "reset token already used")
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, claims.UserID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.sessionManager.Blacklist(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Warn("failed to burn reset token", zap.Error(err))
	}

	return s.revokeAllExcept(ctx, claims.UserID, "", "password reset")
}

// ========== Profile ==========

func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*auth.UserInfo, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := user.Info()
	return &info, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req *auth.UpdateProfileRequest) (*auth.UserInfo, error) {
	if err := s.users.UpdateProfile(ctx, userID, strings.TrimSpace(req.FullName), strings.TrimSpace(req.Phone)); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

func (s *AuthService) revokeAllExcept(ctx context.Context, userID int64, keepSID, reason string) error {
	ids, err := s.sessions.RevokeOtherSessions(ctx, userID, keepSID, s.now())
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	for _, id := range ids {
		if err := s.sessionManager.Refresh(ctx, userID, id); err != nil {
			s.logger.Warn("failed to refresh revoked session", zap.String("sid", id), zap.Error(err))
		}
	}
	s.notifier.ForceLogout(userID, ids, reason)
	return nil
}

func (s *AuthService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.HashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
