// internal/repository/postgres/auth_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"ledgerdesk/internal/domain/auth"
	xerrors "ledgerdesk/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const userColumns = `id, email, full_name, phone, role, manager_id, status, password_hash, created_at, updated_at`

type AuthRepository struct {
	db *pgxpool.Pool
}

func NewAuthRepository(db *pgxpool.Pool) *AuthRepository {
	return &AuthRepository{db: db}
}

// CreateUser inserts a user; a taken email yields ErrDuplicateEntry.
func (r *AuthRepository) CreateUser(ctx context.Context, u *auth.User) error {
	query := `
		INSERT INTO users (email, full_name, phone, role, manager_id, status, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		u.Email, u.FullName, u.Phone, u.Role, u.ManagerID, u.Status, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return xerrors.Wrap(xerrors.ErrDuplicateEntry, "email already registered")
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *AuthRepository) FindUserByID(ctx context.Context, id int64) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (r *AuthRepository) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (r *AuthRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.Wrap(xerrors.ErrNotFound, "user")
	}
	return nil
}

// UpdateProfile changes only the non-empty fields.
func (r *AuthRepository) UpdateProfile(ctx context.Context, id int64, fullName, phone string) error {
	query := `
		UPDATE users
		SET full_name = COALESCE(NULLIF($1, ''), full_name),
		    phone = COALESCE(NULLIF($2, ''), phone),
		    updated_at = $3
		WHERE id = $4
	`
	tag, err := r.db.Exec(ctx, query, fullName, phone, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.Wrap(xerrors.ErrNotFound, "user")
	}
	return nil
}

// ListEmployees returns the manager's staff, optionally narrowed by role and status.
func (r *AuthRepository) ListEmployees(ctx context.Context, managerID int64, filter auth.EmployeeFilter) ([]auth.User, error) {
	roles := filter.Roles
	if len(roles) == 0 {
		roles = []string{auth.RoleEmployee}
	}

	query := `SELECT ` + userColumns + `
		FROM users
		WHERE manager_id = $1
		  AND role = ANY($2::text[])
		  AND ($3::text = '' OR status = $3)
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, managerID, pq.Array(roles), filter.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.Phone, &u.Role, &u.ManagerID,
		&u.Status, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
