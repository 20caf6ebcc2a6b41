package role

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/authz"
)

// Repository manages roles, permissions and the links that grant them to
// users. Lookups by name return 0, nil when the row is missing or deleted.
type Repository interface {
	ListRoles(ctx context.Context) ([]*Role, error)
	RoleID(ctx context.Context, name string) (int64, error)
	PermissionID(ctx context.Context, name string) (int64, error)
	UserExists(ctx context.Context, userID int64) (bool, error)

	HasUserRole(ctx context.Context, userID, roleID int64) (bool, error)
	AddUserRole(ctx context.Context, userID, roleID int64) error
	RemoveUserRole(ctx context.Context, userID, roleID int64) (int64, error)

	HasUserPermission(ctx context.Context, userID, permissionID int64) (bool, error)
	AddUserPermission(ctx context.Context, userID, permissionID, grantedBy int64) error
	RemoveUserPermission(ctx context.Context, userID, permissionID int64) (int64, error)
}

type Authorizer interface {
	RequirePermission(ctx context.Context, mode authz.Mode, names ...string) (int64, error)
}

type Service struct {
	repo   Repository
	guard  Authorizer
	logger *slog.Logger
}

func NewService(repo Repository, guard Authorizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, guard: guard, logger: logger}
}

func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	if _, err := s.guard.RequirePermission(ctx, authz.All, authz.RoleRead); err != nil {
		return nil, err
	}
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// AssignRole links a user to a role. The grant is visible to the resolver
// on the next request.
func (s *Service) AssignRole(ctx context.Context, userID int64, dto AssignRoleDTO) error {
	actorID, err := s.guard.RequirePermission(ctx, authz.All, authz.RoleAssign)
	if err != nil {
		return err
	}
	roleID, err := s.roleID(ctx, dto.Role)
	if err != nil {
		return err
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}

	held, err := s.repo.HasUserRole(ctx, userID, roleID)
	if err != nil {
		return fmt.Errorf("check role link: %w", err)
	}
	if held {
		return internal.ErrRoleAssigned
	}
	if err := s.repo.AddUserRole(ctx, userID, roleID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}

	s.logger.InfoContext(ctx, "role assigned", "user_id", userID, "role", dto.Role, "assigned_by", actorID)
	return nil
}

// RevokeRole soft-deletes the user's link to the role.
func (s *Service) RevokeRole(ctx context.Context, userID int64, roleName string) error {
	actorID, err := s.guard.RequirePermission(ctx, authz.All, authz.RoleRevoke)
	if err != nil {
		return err
	}
	roleID, err := s.roleID(ctx, roleName)
	if err != nil {
		return err
	}

	affected, err := s.repo.RemoveUserRole(ctx, userID, roleID)
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	if affected == 0 {
		return internal.ErrGrantNotFound
	}

	s.logger.InfoContext(ctx, "role revoked", "user_id", userID, "role", roleName, "revoked_by", actorID)
	return nil
}

// GrantPermission gives a user a permission directly, outside any role.
func (s *Service) GrantPermission(ctx context.Context, userID int64, dto GrantPermissionDTO) error {
	actorID, err := s.guard.RequirePermission(ctx, authz.All, authz.PermissionGrant)
	if err != nil {
		return err
	}
	permID, err := s.permissionID(ctx, dto.Permission)
	if err != nil {
		return err
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}

	held, err := s.repo.HasUserPermission(ctx, userID, permID)
	if err != nil {
		return fmt.Errorf("check permission link: %w", err)
	}
	if held {
		return internal.ErrPermissionGranted
	}
	if err := s.repo.AddUserPermission(ctx, userID, permID, actorID); err != nil {
		return fmt.Errorf("grant permission: %w", err)
	}

	s.logger.InfoContext(ctx, "permission granted", "user_id", userID, "permission", dto.Permission, "granted_by", actorID)
	return nil
}

func (s *Service) RevokePermission(ctx context.Context, userID int64, permission string) error {
	actorID, err := s.guard.RequirePermission(ctx, authz.All, authz.PermissionRevoke)
	if err != nil {
		return err
	}
	permID, err := s.permissionID(ctx, permission)
	if err != nil {
		return err
	}

	affected, err := s.repo.RemoveUserPermission(ctx, userID, permID)
	if err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}
	if affected == 0 {
		return internal.ErrGrantNotFound
	}

	s.logger.InfoContext(ctx, "permission revoked", "user_id", userID, "permission", permission, "revoked_by", actorID)
	return nil
}

func (s *Service) roleID(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, internal.NewValidationFieldError("role", "role is required", internal.ErrCodeValidationFailed)
	}
	id, err := s.repo.RoleID(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("lookup role %q: %w", name, err)
	}
	if id == 0 {
		return 0, internal.ErrRoleNotFound
	}
	return id, nil
}

func (s *Service) permissionID(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, internal.NewValidationFieldError("permission", "permission is required", internal.ErrCodeValidationFailed)
	}
	id, err := s.repo.PermissionID(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("lookup permission %q: %w", name, err)
	}
	if id == 0 {
		return 0, internal.ErrPermissionNotFound
	}
	return id, nil
}

func (s *Service) ensureUser(ctx context.Context, userID int64) error {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user %d: %w", userID, err)
	}
	if !exists {
		return internal.ErrUserNotFound
	}
	return nil
}
