package postgres

import (
	"context"
	"errors"
	"sort"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/core/datamodel/rbac"
	userDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/user"
	"github.com/frahmantamala/permit-management/internal/role"
	"github.com/frahmantamala/permit-management/internal/store"
)

type RoleRepository struct {
	store store.Store
}

func NewRoleRepository(st store.Store) *RoleRepository {
	return &RoleRepository{store: st}
}

// ListRoles returns live roles with the names of their live permissions.
func (r *RoleRepository) ListRoles(ctx context.Context) ([]*role.Role, error) {
	var roles []rbac.Role
	if err := r.store.FindMany(ctx, &roles, store.Query{OrderBy: "id ASC"}); err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return []*role.Role{}, nil
	}

	roleIDs := make([]int64, 0, len(roles))
	for _, ro := range roles {
		roleIDs = append(roleIDs, ro.ID)
	}
	var grants []rbac.RolePermission
	if err := r.store.FindMany(ctx, &grants, store.Query{Where: store.Filter{"role_id": roleIDs}}); err != nil {
		return nil, err
	}

	var perms []rbac.Permission
	if err := r.store.FindMany(ctx, &perms, store.Query{}); err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(perms))
	for _, p := range perms {
		names[p.ID] = p.Name
	}

	byRole := make(map[int64][]string, len(roles))
	for _, g := range grants {
		if name, ok := names[g.PermissionID]; ok {
			byRole[g.RoleID] = append(byRole[g.RoleID], name)
		}
	}

	out := make([]*role.Role, 0, len(roles))
	for _, ro := range roles {
		granted := byRole[ro.ID]
		if granted == nil {
			granted = []string{}
		}
		sort.Strings(granted)
		out = append(out, &role.Role{ID: ro.ID, Name: ro.Name, Permissions: granted, CreatedAt: ro.CreatedAt})
	}
	return out, nil
}

func (r *RoleRepository) RoleID(ctx context.Context, name string) (int64, error) {
	var row rbac.Role
	found, err := r.store.FindFirst(ctx, &row, store.Filter{"name": name})
	if err != nil || !found {
		return 0, err
	}
	return row.ID, nil
}

func (r *RoleRepository) PermissionID(ctx context.Context, name string) (int64, error) {
	var row rbac.Permission
	found, err := r.store.FindFirst(ctx, &row, store.Filter{"name": name})
	if err != nil || !found {
		return 0, err
	}
	return row.ID, nil
}

func (r *RoleRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	n, err := r.store.Count(ctx, &userDatamodel.User{}, store.Filter{"id": userID})
	return n > 0, err
}

func (r *RoleRepository) HasUserRole(ctx context.Context, userID, roleID int64) (bool, error) {
	n, err := r.store.Count(ctx, &rbac.UserRole{}, store.Filter{"user_id": userID, "role_id": roleID})
	return n > 0, err
}

// AddUserRole reports internal.ErrRoleAssigned when a concurrent request
// created the same live link first.
func (r *RoleRepository) AddUserRole(ctx context.Context, userID, roleID int64) error {
	err := r.store.Create(ctx, &rbac.UserRole{UserID: userID, RoleID: roleID})
	if errors.Is(err, store.ErrDuplicate) {
		return internal.ErrRoleAssigned
	}
	return err
}

func (r *RoleRepository) RemoveUserRole(ctx context.Context, userID, roleID int64) (int64, error) {
	return r.store.DeleteMany(ctx, &rbac.UserRole{}, store.Filter{"user_id": userID, "role_id": roleID, store.DeletedColumn: false})
}

func (r *RoleRepository) HasUserPermission(ctx context.Context, userID, permissionID int64) (bool, error) {
	n, err := r.store.Count(ctx, &rbac.UserPermission{}, store.Filter{"user_id": userID, "permission_id": permissionID})
	return n > 0, err
}

func (r *RoleRepository) AddUserPermission(ctx context.Context, userID, permissionID, grantedBy int64) error {
	err := r.store.Create(ctx, &rbac.UserPermission{UserID: userID, PermissionID: permissionID, GrantedBy: &grantedBy})
	if errors.Is(err, store.ErrDuplicate) {
		return internal.ErrPermissionGranted
	}
	return err
}

func (r *RoleRepository) RemoveUserPermission(ctx context.Context, userID, permissionID int64) (int64, error) {
	return r.store.DeleteMany(ctx, &rbac.UserPermission{}, store.Filter{"user_id": userID, "permission_id": permissionID, store.DeletedColumn: false})
}

// EnsureRole returns the id of the live role with name, creating it when
// absent.
func (r *RoleRepository) EnsureRole(ctx context.Context, name string) (int64, error) {
	id, err := r.RoleID(ctx, name)
	if err != nil || id != 0 {
		return id, err
	}
	row := &rbac.Role{Name: name}
	if err := r.store.Create(ctx, row); err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (r *RoleRepository) EnsurePermission(ctx context.Context, name string) (int64, error) {
	id, err := r.PermissionID(ctx, name)
	if err != nil || id != 0 {
		return id, err
	}
	row := &rbac.Permission{Name: name}
	if err := r.store.Create(ctx, row); err != nil {
		return 0, err
	}
	return row.ID, nil
}

// EnsureRolePermission links a role to a permission unless a live link
// already exists.
func (r *RoleRepository) EnsureRolePermission(ctx context.Context, roleID, permissionID int64) error {
	n, err := r.store.Count(ctx, &rbac.RolePermission{}, store.Filter{"role_id": roleID, "permission_id": permissionID})
	if err != nil || n > 0 {
		return err
	}
	err = r.store.Create(ctx, &rbac.RolePermission{RoleID: roleID, PermissionID: permissionID})
	if errors.Is(err, store.ErrDuplicate) {
		return nil
	}
	return err
}

// EnsureUserRole links a user to a role unless a live link already exists.
func (r *RoleRepository) EnsureUserRole(ctx context.Context, userID, roleID int64) error {
	held, err := r.HasUserRole(ctx, userID, roleID)
	if err != nil || held {
		return err
	}
	if err := r.AddUserRole(ctx, userID, roleID); !errors.Is(err, internal.ErrRoleAssigned) {
		return err
	}
	return nil
}
