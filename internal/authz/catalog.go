package authz

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	RoleStaff      = "staff"
	RoleSecurity   = "security"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

const (
	PermitCreate  = "permit:create"
	PermitRead    = "permit:read"
	PermitGet     = "permit:get"
	PermitApprove = "permit:approve"
	PermitDelete  = "permit:delete"
	PermitRestore = "permit:restore"
	PermitVerify  = "permit:verify"

	DepartmentCreate  = "department:create"
	DepartmentRead    = "department:read"
	DepartmentGet     = "department:get"
	DepartmentUpdate  = "department:update"
	DepartmentDelete  = "department:delete"
	DepartmentRestore = "department:restore"

	UserRead    = "user:read"
	UserGet     = "user:get"
	UserUpdate  = "user:update"
	UserDelete  = "user:delete"
	UserRestore = "user:restore"

	RoleRead         = "role:read"
	RoleAssign       = "role:assign"
	RoleRevoke       = "role:revoke"
	PermissionGrant  = "permission:grant"
	PermissionRevoke = "permission:revoke"
)

// Vocabulary lists every permission name the routes check, in seed order.
var Vocabulary = []string{
	PermitCreate, PermitRead, PermitGet, PermitApprove, PermitDelete, PermitRestore, PermitVerify,
	DepartmentCreate, DepartmentRead, DepartmentGet, DepartmentUpdate, DepartmentDelete, DepartmentRestore,
	UserRead, UserGet, UserUpdate, UserDelete, UserRestore,
	RoleRead, RoleAssign, RoleRevoke, PermissionGrant, PermissionRevoke,
}

var permissionName = regexp.MustCompile(`^[a-z][a-z_]*:[a-z][a-z_]*$`)

// RoleGrant is one catalog entry: a role and the permissions it carries.
type RoleGrant struct {
	Role        string
	Permissions []string
}

// Catalog is the ordered role to permission mapping that seeding installs.
type Catalog []RoleGrant

// DefaultCatalog returns the roles shipped with the service.
func DefaultCatalog() Catalog {
	return Catalog{
		{Role: RoleStaff, Permissions: []string{PermitCreate}},
		{Role: RoleSecurity, Permissions: []string{
			PermitRead, PermitGet, PermitVerify,
			DepartmentRead, DepartmentGet,
		}},
		{Role: RoleAdmin, Permissions: []string{
			PermitCreate, PermitRead, PermitGet, PermitApprove, PermitDelete,
			DepartmentCreate, DepartmentRead, DepartmentGet, DepartmentUpdate,
			UserRead, UserGet,
			RoleRead,
		}},
		{Role: RoleSuperadmin, Permissions: append([]string(nil), Vocabulary...)},
	}
}

// Roles returns the role names in catalog order.
func (c Catalog) Roles() []string {
	out := make([]string, 0, len(c))
	for _, g := range c {
		out = append(out, g.Role)
	}
	return out
}

// PermissionsOf returns the permissions granted to role, or nil.
func (c Catalog) PermissionsOf(role string) []string {
	for _, g := range c {
		if g.Role == role {
			return g.Permissions
		}
	}
	return nil
}

// Validate rejects malformed names, names outside the vocabulary, and
// duplicated entries, so a typo fails at startup instead of denying requests.
func (c Catalog) Validate() error {
	known := make(map[string]struct{}, len(Vocabulary))
	for _, p := range Vocabulary {
		known[p] = struct{}{}
	}

	var errs []error
	roles := make(map[string]struct{}, len(c))
	for _, g := range c {
		if g.Role == "" {
			errs = append(errs, errors.New("catalog: empty role name"))
			continue
		}
		if _, dup := roles[g.Role]; dup {
			errs = append(errs, fmt.Errorf("catalog: role %q listed twice", g.Role))
		}
		roles[g.Role] = struct{}{}

		perms := make(map[string]struct{}, len(g.Permissions))
		for _, p := range g.Permissions {
			if !permissionName.MatchString(p) {
				errs = append(errs, fmt.Errorf("catalog: role %q: %q is not resource:action", g.Role, p))
				continue
			}
			if _, ok := known[p]; !ok {
				errs = append(errs, fmt.Errorf("catalog: role %q: unknown permission %q", g.Role, p))
			}
			if _, dup := perms[p]; dup {
				errs = append(errs, fmt.Errorf("catalog: role %q: permission %q listed twice", g.Role, p))
			}
			perms[p] = struct{}{}
		}
	}
	return errors.Join(errs...)
}
