// Package account runs the sign-in, registration and password flows of the client.
package account

import (
	"context"
	"errors"
	"strings"

	"ledgerdesk/internal/client/api"
	"ledgerdesk/internal/client/credentials"
	"ledgerdesk/internal/client/device"
	"ledgerdesk/internal/domain/auth"
	"ledgerdesk/internal/pkg/validate"

	"go.uber.org/zap"
)

// Backend is the slice of the REST client the account flows need.
type Backend interface {
	Login(ctx context.Context, in api.LoginInput) (*api.LoginResult, error)
	Register(ctx context.Context, in api.RegisterInput) (*api.LoginResult, error)
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, current, next string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Outcome tells the caller where a successful sign-in goes next.
type Outcome struct {
	SessionID string
	Approved  bool
	User      credentials.User
	// Home is the role's landing route; empty while approval is pending.
	Home      string
}

type Service struct {
	backend Backend
	creds   *credentials.Store
	logger  *zap.Logger
}

func NewService(backend Backend, creds *credentials.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, creds: creds, logger: logger}
}

// Login validates the form, signs in and stores the credentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Outcome, error) {
	var fe validate.FieldErrors
	if err := validate.Email(email); err != nil {
		fe = append(fe, fieldError(err, "email")...)
	}
	if password == "" {
		fe = append(fe, validate.FieldError{Field: "password", Message: "password is required"})
	}
	if len(fe) > 0 {
		return nil, fe
	}

	dev, err := device.Ensure(s.creds)
	if err != nil {
		s.logger.Warn("device identity not saved", zap.Error(err))
	}

	res, err := s.backend.Login(ctx, api.LoginInput{
		Email:      strings.TrimSpace(email),
		Password:   password,
		DeviceName: dev.Name,
		DeviceID:   dev.ID,
	})
	if err != nil {
		return nil, err
	}
	return s.remember(res)
}

// RegisterInput is the manager sign-up form.
type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,password"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
}

// Register creates a manager account; the registering device becomes main.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Outcome, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	dev, err := device.Ensure(s.creds)
	if err != nil {
		s.logger.Warn("device identity not saved", zap.Error(err))
	}

	res, err := s.backend.Register(ctx, api.RegisterInput{
		Email:      strings.TrimSpace(in.Email),
		Password:   in.Password,
		FullName:   strings.TrimSpace(in.FullName),
		Phone:      strings.TrimSpace(in.Phone),
		DeviceName: dev.Name,
		DeviceID:   dev.ID,
	})
	if err != nil {
		return nil, err
	}
	return s.remember(res)
}

func (s *Service) remember(res *api.LoginResult) (*Outcome, error) {
	user := credentials.User{
		ID:       res.User.ID,
		Email:    res.User.Email,
		FullName: res.User.FullName,
		Role:     res.User.Role,
	}
	if err := s.creds.SetLogin(res.Token, res.SessionID, user); err != nil {
		return nil, err
	}

	out := &Outcome{SessionID: res.SessionID, Approved: res.Approved, User: user}
	if res.Approved {
		out.Home = auth.HomeRoute(user.Role)
	}
	s.logger.Debug("signed in",
		zap.String("sid", res.SessionID),
		zap.String("role", user.Role),
		zap.Bool("approved", res.Approved))
	return out, nil
}

// Logout always clears the local credentials; the remote error, if any, is
// still returned so the caller can report it.
func (s *Service) Logout(ctx context.Context) error {
	remoteErr := s.backend.Logout(ctx)
	if remoteErr != nil {
		s.logger.Warn("remote logout failed", zap.Error(remoteErr))
	}
	if err := s.creds.Clear(); err != nil {
		return err
	}
	return remoteErr
}

func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" {
		return validate.FieldErrors{{Field: "current_password", Message: "current password is required"}}
	}
	if err := validate.Password(next); err != nil {
		return fieldError(err, "new_password")
	}
	return s.backend.ChangePassword(ctx, current, next)
}

func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if err := validate.Email(email); err != nil {
		return fieldError(err, "email")
	}
	return s.backend.ForgotPassword(ctx, strings.TrimSpace(email))
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	var fe validate.FieldErrors
	if strings.TrimSpace(token) == "" {
		fe = append(fe, validate.FieldError{Field: "token", Message: "reset token is required"})
	}
	if err := validate.Password(newPassword); err != nil {
		fe = append(fe, fieldError(err, "new_password")...)
	}
	if len(fe) > 0 {
		return fe
	}
	return s.backend.ResetPassword(ctx, strings.TrimSpace(token), newPassword)
}

// Home returns the landing route of the stored user.
func (s *Service) Home() (string, error) {
	u, err := s.creds.User()
	if err != nil {
		return "", err
	}
	return auth.HomeRoute(u.Role), nil
}

// fieldError renames a single-field validation error to the form's field.
func fieldError(err error, field string) validate.FieldErrors {
	var fe validate.FieldError
	if errors.As(err, &fe) {
		fe.Field = field
		return validate.FieldErrors{fe}
	}
	return validate.FieldErrors{{Field: field, Message: err.Error()}}
}
