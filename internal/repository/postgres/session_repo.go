// internal/repository/postgres/session_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"ledgerdesk/internal/domain/auth"
	xerrors "ledgerdesk/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, user_id, device_name, device_id, ip, user_agent, created_at, last_seen,
	expires_at, approved, approved_at, revoked_at, is_main_device`

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession inserts a login. Claiming main device while another live main
// device exists fails with ErrConflict; an expired main device loses the flag
// in the same transaction.
func (r *SessionRepository) CreateSession(ctx context.Context, s *auth.Session) error {
	query := `
		INSERT INTO device_sessions (
			id, user_id, device_name, device_id, ip, user_agent,
			created_at, last_seen, expires_at, approved, approved_at, is_main_device
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8, $9, $10, $11)
	`
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if s.IsMainDevice {
			if _, err := tx.Exec(ctx, `
				UPDATE device_sessions SET is_main_device = FALSE
				WHERE user_id = $1 AND is_main_device AND revoked_at IS NULL AND expires_at <= $2`,
				s.UserID, s.CreatedAt); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, query,
			s.ID, s.UserID, s.DeviceName, s.DeviceID, s.IP, s.UserAgent,
			s.CreatedAt, s.ExpiresAt, s.Approved, s.ApprovedAt, s.IsMainDevice,
		)
		return err
	})
	if isUniqueViolation(err) {
		return xerrors.Wrap(xerrors.ErrConflict, "user already has a main device")
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	s.LastSeen = s.CreatedAt
	return nil
}

func (r *SessionRepository) FindSessionByID(ctx context.Context, id string) (*auth.Session, error) {
	row := r.db.Pool().QueryRow(ctx, `SELECT `+sessionColumns+` FROM device_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		return nil, notFound(err, "session")
	}
	return s, nil
}

// ListSessions returns every session of the user, newest first, revoked ones included.
func (r *SessionRepository) ListSessions(ctx context.Context, userID int64) ([]auth.Session, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+sessionColumns+` FROM device_sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []auth.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// FindMainDevice returns the live main device; an expired one does not count.
func (r *SessionRepository) FindMainDevice(ctx context.Context, userID int64, at time.Time) (*auth.Session, error) {
	row := r.db.Pool().QueryRow(ctx, `SELECT `+sessionColumns+`
		FROM device_sessions
		WHERE user_id = $1 AND is_main_device AND revoked_at IS NULL AND expires_at > $2`, userID, at)
	s, err := scanSession(row)
	if err != nil {
		return nil, notFound(err, "main device")
	}
	return s, nil
}

// ApproveSession marks a pending session approved. Approving twice is a no-op.
func (r *SessionRepository) ApproveSession(ctx context.Context, userID int64, id string, at time.Time) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		s, err := lockSession(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if s.IsRevoked() {
			return xerrors.Wrap(xerrors.ErrSessionRevoked, "cannot approve a revoked session")
		}
		if s.Approved {
			return nil
		}
		_, err = tx.Exec(ctx,
			`UPDATE device_sessions SET approved = TRUE, approved_at = $1 WHERE id = $2`, at, id)
		if err != nil {
			return fmt.Errorf("failed to approve session: %w", err)
		}
		return nil
	})
}

// RevokeSession ends a session. approved_at is kept as history.
func (r *SessionRepository) RevokeSession(ctx context.Context, userID int64, id string, at time.Time) error {
	tag, err := r.db.Pool().Exec(ctx, `
		UPDATE device_sessions
		SET revoked_at = COALESCE(revoked_at, $1), approved = FALSE, is_main_device = FALSE
		WHERE id = $2 AND user_id = $3`, at, id, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.Wrap(xerrors.ErrNotFound, "session")
	}
	return nil
}

// RevokeOtherSessions ends every live session of the user except keepID.
func (r *SessionRepository) RevokeOtherSessions(ctx context.Context, userID int64, keepID string, at time.Time) ([]string, error) {
	rows, err := r.db.Pool().Query(ctx, `
		UPDATE device_sessions
		SET revoked_at = $1, approved = FALSE, is_main_device = FALSE
		WHERE user_id = $2 AND id <> $3 AND revoked_at IS NULL
		RETURNING id`, at, userID, keepID)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan revoked id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TransferMainDevice moves the flag inside one transaction so the partial
// unique index never sees two live main devices.
func (r *SessionRepository) TransferMainDevice(ctx context.Context, userID int64, fromID, toID string) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		from, err := lockSession(ctx, tx, userID, fromID)
		if err != nil {
			return err
		}
		if !from.IsMainDevice || from.IsRevoked() {
			return xerrors.ErrNotMainDevice
		}
		to, err := lockSession(ctx, tx, userID, toID)
		if err != nil {
			return err
		}
		if to.IsRevoked() {
			return xerrors.Wrap(xerrors.ErrSessionRevoked, "cannot transfer to a revoked session")
		}
		if !to.Approved {
			return xerrors.Wrap(xerrors.ErrSessionNotActive, "target session must be approved")
		}

		if _, err := tx.Exec(ctx,
			`UPDATE device_sessions SET is_main_device = FALSE WHERE id = $1`, fromID); err != nil {
			return fmt.Errorf("failed to clear main device: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE device_sessions SET is_main_device = TRUE WHERE id = $1`, toID); err != nil {
			return fmt.Errorf("failed to set main device: %w", err)
		}
		return nil
	})
}

// TouchSession bumps last_seen and reports false when the session is gone or revoked.
func (r *SessionRepository) TouchSession(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE device_sessions SET last_seen = $1 WHERE id = $2 AND revoked_at IS NULL`, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to touch session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func lockSession(ctx context.Context, tx pgx.Tx, userID int64, id string) (*auth.Session, error) {
	row := tx.QueryRow(ctx, `SELECT `+sessionColumns+`
		FROM device_sessions WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
	s, err := scanSession(row)
	if err != nil {
		return nil, notFound(err, "session")
	}
	return s, nil
}

func scanSession(row pgx.Row) (*auth.Session, error) {
	var s auth.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.DeviceName, &s.DeviceID, &s.IP, &s.UserAgent,
		&s.CreatedAt, &s.LastSeen, &s.ExpiresAt, &s.Approved, &s.ApprovedAt,
		&s.RevokedAt, &s.IsMainDevice,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
