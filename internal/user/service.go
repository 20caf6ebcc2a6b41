package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/authz"
)

// Repository reads and writes user accounts. FindByID returns nil, nil for a
// missing or deleted user.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, error)
	UpdateName(ctx context.Context, id int64, name string) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Restore(ctx context.Context, id int64) (int64, error)
	DepartmentIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Grants exposes the resolver's effective sets for the profile view.
type Grants interface {
	EffectiveRoles(ctx context.Context, userID int64) ([]string, error)
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

type Authorizer interface {
	RequirePermission(ctx context.Context, mode authz.Mode, names ...string) (int64, error)
}

type Service struct {
	repo   Repository
	grants Grants
	guard  Authorizer
	logger *slog.Logger
}

func NewService(repo Repository, grants Grants, guard Authorizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		grants: grants,
		guard:  guard,
		logger: logger,
	}
}

// Me returns the caller's profile with effective roles and permissions.
func (s *Service) Me(ctx context.Context) (*Profile, error) {
	userID, ok := internal.CurrentUserID(ctx)
	if !ok {
		return nil, internal.ErrUnauthenticated
	}

	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles, err := s.grants.EffectiveRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	perms, err := s.grants.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}
	departments, err := s.repo.DepartmentIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user departments: %w", err)
	}

	return &Profile{User: u, Roles: roles, Permissions: perms, DepartmentIDs: departments}, nil
}

// GetByID returns the caller's own account, or any account to holders of
// user:read or user:get.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	callerID, ok := internal.CurrentUserID(ctx)
	if !ok {
		return nil, internal.ErrUnauthenticated
	}
	if callerID != id {
		if _, err := s.guard.RequirePermission(ctx, authz.Any, authz.UserRead, authz.UserGet); err != nil {
			return nil, err
		}
	}
	return s.load(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, error) {
	if _, err := s.guard.RequirePermission(ctx, authz.All, authz.UserRead); err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update edits a profile. Users may edit their own; anyone else needs
// user:update.
func (s *Service) Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error) {
	callerID, ok := internal.CurrentUserID(ctx)
	if !ok {
		return nil, internal.ErrUnauthenticated
	}
	if callerID != id {
		if _, err := s.guard.RequirePermission(ctx, authz.All, authz.UserUpdate); err != nil {
			return nil, err
		}
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	affected, err := s.repo.UpdateName(ctx, id, strings.TrimSpace(*dto.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if affected == 0 {
		return nil, internal.ErrUserNotFound
	}

	s.logger.InfoContext(ctx, "user updated", "user_id", id, "updated_by", callerID)
	return s.load(ctx, id)
}

// Delete soft-deletes an account. A deleted user can no longer log in or
// use outstanding tokens.
func (s *Service) Delete(ctx context.Context, id int64) error {
	callerID, err := s.guard.RequirePermission(ctx, authz.All, authz.UserDelete)
	if err != nil {
		return err
	}
	if callerID == id {
		return internal.NewValidationError("you cannot delete your own account", internal.ErrCodeValidationFailed)
	}

	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if affected == 0 {
		return internal.ErrUserNotFound
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id, "deleted_by", callerID)
	return nil
}

func (s *Service) Restore(ctx context.Context, id int64) (*User, error) {
	callerID, err := s.guard.RequirePermission(ctx, authz.All, authz.UserRestore)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to restore user: %w", err)
	}
	if affected == 0 {
		return nil, internal.ErrUserNotFound
	}
	s.logger.InfoContext(ctx, "user restored", "user_id", id, "restored_by", callerID)
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}
