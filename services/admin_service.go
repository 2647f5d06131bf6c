package services

import (
	"context"
	"errors"

	"skystore/models"
	"skystore/repositories"

	"gorm.io/gorm"
)

type ApproveUserInput struct {
	UserID uint
	Role   string
}

// AdminService covers account review: new registrations stay in the pending
// role until an admin assigns them a real one.
type AdminService interface {
	ListPendingUsers(ctx context.Context, admin models.Principal, offset, limit int) ([]models.User, error)
	ApproveUser(ctx context.Context, admin models.Principal, in ApproveUserInput) (models.User, error)
}

type adminService struct {
	users repositories.UserRepository
}

func NewAdminService(users repositories.UserRepository) AdminService {
	return &adminService{users: users}
}

func (s *adminService) ListPendingUsers(ctx context.Context, admin models.Principal, offset, limit int) ([]models.User, error) {
	if !admin.IsAdmin() {
		return nil, newPermissionDenied("admin privileges required")
	}

	users, err := s.users.ListByRole(ctx, nil, models.RolePending, offset, limit)
	if err != nil {
		return nil, newInternal("failed to list pending users", err)
	}
	return users, nil
}

func (s *adminService) ApproveUser(ctx context.Context, admin models.Principal, in ApproveUserInput) (models.User, error) {
	if !admin.IsAdmin() {
		return models.User{}, newPermissionDenied("admin privileges required")
	}

	switch in.Role {
	case models.RolePublic, models.RoleMember, models.RoleAdmin:
	default:
		return models.User{}, newBadRequest("role must be public, member or admin")
	}

	user, err := s.users.GetByID(ctx, nil, in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, newNotFound("user not found")
		}
		return models.User{}, newInternal("failed to query user", err)
	}
	if user.Role != models.RolePending {
		return models.User{}, newInvalidState("user is not pending approval")
	}

	adminID := admin.ID
	err = s.users.UpdateByID(ctx, nil, user.ID, map[string]interface{}{
		"role":        in.Role,
		"is_active":   true,
		"approved_by": adminID,
	})
	if err != nil {
		return models.User{}, newInternal("failed to approve user", err)
	}

	user.Role = in.Role
	user.IsActive = true
	user.ApprovedBy = &adminID
	return user, nil
}
