package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ledgerdesk/internal/pkg/jwt"
)

// User is the account as the client sees it.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	ManagerID *int64 `json:"manager_id,omitempty"`
}

// LoginResult is the canonical login/register outcome.
type LoginResult struct {
	Token        string
	SessionID    string
	Approved     bool
	IsMainDevice bool
	ExpiresAt    time.Time
	User         User
}

type LoginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
}

type RegisterInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Phone      string `json:"phone,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
}

type EmployeeInput struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type ProfileInput struct {
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// loginPayload accepts every login shape the backend has produced.
type loginPayload struct {
	Token        string `json:"token"`
	AccessToken  string `json:"access_token"`
	SessionID    string `json:"session_id"`
	SID          string `json:"sid"`
	Approved     *bool  `json:"approved"`
	IsMainDevice bool   `json:"is_main_device"`
	ExpiresAt    string `json:"expires_at"`
	User         *User  `json:"user"`
}

// normalizeLogin maps a login body, nested under data or flat, to LoginResult.
func normalizeLogin(body []byte) (*LoginResult, error) {
	inner := payload(body)

	var p loginPayload
	if err := json.Unmarshal(inner, &p); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	res := &LoginResult{
		Token:        p.Token,
		SessionID:    p.SessionID,
		IsMainDevice: p.IsMainDevice,
	}
	if res.Token == "" {
		res.Token = p.AccessToken
	}
	if res.Token == "" {
		return nil, errors.New("login response carries no token")
	}
	if res.SessionID == "" {
		res.SessionID = p.SID
	}

	var claims *jwt.Claims
	if c, err := jwt.ReadUnverified(res.Token); err == nil {
		claims = c
	}
	if res.SessionID == "" && claims != nil {
		res.SessionID = claims.SessionID()
	}

	// without an explicit flag the approval gate settles it on its first poll
	if p.Approved != nil {
		res.Approved = *p.Approved
	}

	if p.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, p.ExpiresAt); err == nil {
			res.ExpiresAt = t
		}
	}
	if res.ExpiresAt.IsZero() && claims != nil && claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time
	}

	switch {
	case p.User != nil:
		res.User = *p.User
	default:
		// some responses flatten the user next to the token
		var flat User
		if err := json.Unmarshal(inner, &flat); err == nil && flat.Email != "" {
			res.User = flat
		} else if claims != nil {
			res.User = User{ID: claims.UserID, Email: claims.Email, Role: claims.Role}
		}
	}
	if res.User.Role == "" {
		return nil, errors.New("login response carries no user role")
	}
	return res, nil
}

func (c *Client) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	body, err := c.raw(ctx, http.MethodPost, "/auth/login", in)
	if err != nil {
		return nil, err
	}
	return normalizeLogin(body)
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	body, err := c.raw(ctx, http.MethodPost, "/auth/register", in)
	if err != nil {
		return nil, err
	}
	return normalizeLogin(body)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/auth/logout", nil, nil)
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.post(ctx, "/auth/change-password", map[string]string{
		"current_password": current,
		"new_password":     next,
	}, nil)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.post(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.post(ctx, "/auth/reset-password", map[string]string{
		"token":        token,
		"new_password": newPassword,
	}, nil)
}

func (c *Client) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/auth/profile", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, in ProfileInput) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPut, "/auth/profile", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Employees(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.get(ctx, "/auth/employees", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateEmployee(ctx context.Context, in EmployeeInput) (*User, error) {
	var u User
	if err := c.post(ctx, "/auth/employees", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
