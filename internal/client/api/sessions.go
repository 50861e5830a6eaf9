package api

import (
	"context"
	"time"
)

// Session is one device login as listed by /auth/sessions.
type Session struct {
	SID          string     `json:"sid"`
	DeviceName   string     `json:"device_name"`
	DeviceID     string     `json:"device_id"`
	IP           string     `json:"ip"`
	UserAgent    string     `json:"user_agent"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSeen     time.Time  `json:"last_seen"`
	Approved     bool       `json:"approved"`
	ApprovedAt   *time.Time `json:"approved_at"`
	RevokedAt    *time.Time `json:"revoked_at"`
	IsCurrent    bool       `json:"is_current"`
	IsMainDevice bool       `json:"is_main_device"`
}

type sidRequest struct {
	SID string `json:"sid"`
}

func (c *Client) Sessions(ctx context.Context) ([]Session, error) {
	var out []Session
	if err := c.get(ctx, "/auth/sessions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ApproveSession(ctx context.Context, sid string) error {
	return c.post(ctx, "/auth/sessions/approve", sidRequest{SID: sid}, nil)
}

func (c *Client) RevokeSession(ctx context.Context, sid string) error {
	return c.post(ctx, "/auth/sessions/revoke", sidRequest{SID: sid}, nil)
}

func (c *Client) RevokeOtherSessions(ctx context.Context) ([]string, error) {
	var out struct {
		Revoked []string `json:"revoked"`
	}
	if err := c.post(ctx, "/auth/sessions/revoke-others", nil, &out); err != nil {
		return nil, err
	}
	return out.Revoked, nil
}

func (c *Client) TransferMainDevice(ctx context.Context, sid string) error {
	return c.post(ctx, "/auth/sessions/transfer-main", sidRequest{SID: sid}, nil)
}
