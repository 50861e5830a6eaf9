// internal/service/auth/employees.go
package auth

import (
	"context"
	"strings"

	"ledgerdesk/internal/domain/auth"
	xerrors "ledgerdesk/internal/pkg/errors"

	"go.uber.org/zap"
)

// CreateEmployee adds a staff account under the calling manager.
func (s *AuthService) CreateEmployee(ctx context.Context, managerID int64, req *auth.CreateEmployeeRequest) (*auth.UserInfo, error) {
	manager, err := s.users.FindUserByID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if !manager.IsManager() {
		return nil, xerrors.Wrap(xerrors.ErrForbidden, "only managers can add employees")
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	employee := &auth.User{
		Email:        strings.TrimSpace(strings.ToLower(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         auth.RoleEmployee,
		ManagerID:    &manager.ID,
		Status:       auth.StatusActive,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, employee); err != nil {
		return nil, err
	}

	s.logger.Info("employee created",
		zap.Int64("manager_id", manager.ID),
		zap.Int64("employee_id", employee.ID))

	s.emailHelper.send(employee.Email, "employee_invite", func() (string, string) {
		return s.emailHelper.EmployeeInviteEmail(employee.FullName, manager.FullName)
	})

	info := employee.Info()
	return &info, nil
}

// ListEmployees returns the manager's staff.
func (s *AuthService) ListEmployees(ctx context.Context, managerID int64, filter auth.EmployeeFilter) ([]auth.UserInfo, error) {
	users, err := s.users.ListEmployees(ctx, managerID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]auth.UserInfo, 0, len(users))
	for i := range users {
		out = append(out, users[i].Info())
	}
	return out, nil
}
