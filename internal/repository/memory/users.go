// Package memory holds in-process repositories used by the API's dev mode and by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ledgerdesk/internal/domain/auth"
	xerrors "ledgerdesk/internal/pkg/errors"
)

type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]auth.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]auth.User)}
}

func (r *UserRepository) CreateUser(_ context.Context, u *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return xerrors.Wrap(xerrors.ErrDuplicateEntry, "email already registered")
		}
	}
	r.nextID++
	now := time.Now()
	u.ID = r.nextID
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) FindUserByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "user")
	}
	return &u, nil
}

func (r *UserRepository) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, xerrors.Wrap(xerrors.ErrNotFound, "user")
}

func (r *UserRepository) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	return r.update(id, func(u *auth.User) { u.PasswordHash = passwordHash })
}

func (r *UserRepository) UpdateProfile(_ context.Context, id int64, fullName, phone string) error {
	return r.update(id, func(u *auth.User) {
		if fullName != "" {
			u.FullName = fullName
		}
		if phone != "" {
			u.Phone = phone
		}
	})
}

func (r *UserRepository) ListEmployees(_ context.Context, managerID int64, filter auth.EmployeeFilter) ([]auth.User, error) {
	roles := filter.Roles
	if len(roles) == 0 {
		roles = []string{auth.RoleEmployee}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []auth.User
	for _, u := range r.users {
		if u.ManagerID == nil || *u.ManagerID != managerID {
			continue
		}
		if !contains(roles, u.Role) {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *UserRepository) update(id int64, fn func(u *auth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return xerrors.Wrap(xerrors.ErrNotFound, "user")
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
