// Package seed installs the permission vocabulary, the role catalog and a
// small set of demo departments and accounts. Every step is idempotent.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/frahmantamala/permit-management/internal/authz"
	departmentDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/department"
	permitDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/permit"
	userDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/user"
	"github.com/frahmantamala/permit-management/internal/store"
)

// RoleWriter is the subset of the role repository seeding needs.
type RoleWriter interface {
	EnsureRole(ctx context.Context, name string) (int64, error)
	EnsurePermission(ctx context.Context, name string) (int64, error)
	EnsureRolePermission(ctx context.Context, roleID, permissionID int64) error
	EnsureUserRole(ctx context.Context, userID, roleID int64) error
}

type PasswordHasher func(password string) (string, error)

type Department struct {
	Name        string
	Description string
}

type DemoUser struct {
	Email       string
	Name        string
	Role        string
	Departments []string
}

var DefaultDepartments = []Department{
	{Name: "Engineering", Description: "Product and platform engineering"},
	{Name: "Operations", Description: "Facilities and site operations"},
	{Name: "Security", Description: "Physical security and access control"},
}

var DefaultUsers = []DemoUser{
	{Email: "staff@example.com", Name: "Staff Member", Role: authz.RoleStaff, Departments: []string{"Engineering"}},
	{Email: "security@example.com", Name: "Security Officer", Role: authz.RoleSecurity, Departments: []string{"Security"}},
	{Email: "admin@example.com", Name: "Department Admin", Role: authz.RoleAdmin, Departments: []string{"Engineering", "Operations"}},
	{Email: "superadmin@example.com", Name: "Super Admin", Role: authz.RoleSuperadmin},
}

type Options struct {
	// Clear soft-deletes every live permit before seeding.
	Clear    bool
	Password string
}

// Report counts what a run created. Existing rows are not counted.
type Report struct {
	Departments    int
	Users          int
	ClearedPermits int64
}

type Seeder struct {
	store       store.Store
	roles       RoleWriter
	catalog     authz.Catalog
	hash        PasswordHasher
	departments []Department
	users       []DemoUser
	logger      *slog.Logger
}

func New(st store.Store, roles RoleWriter, catalog authz.Catalog, hash PasswordHasher, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		store:       st,
		roles:       roles,
		catalog:     catalog,
		hash:        hash,
		departments: DefaultDepartments,
		users:       DefaultUsers,
		logger:      logger,
	}
}

func (s *Seeder) Run(ctx context.Context, opts Options) (Report, error) {
	var report Report
	if err := s.catalog.Validate(); err != nil {
		return report, fmt.Errorf("invalid role catalog: %w", err)
	}

	if opts.Clear {
		n, err := s.store.DeleteMany(ctx, &permitDatamodel.Permit{}, store.Filter{store.DeletedColumn: false})
		if err != nil {
			return report, fmt.Errorf("clear permits: %w", err)
		}
		report.ClearedPermits = n
		s.logger.Info("cleared permits", "count", n)
	}

	roleIDs, err := s.seedCatalog(ctx)
	if err != nil {
		return report, err
	}

	departmentIDs := make(map[string]int64, len(s.departments))
	for _, d := range s.departments {
		id, created, err := s.ensureDepartment(ctx, d)
		if err != nil {
			return report, err
		}
		departmentIDs[d.Name] = id
		if created {
			report.Departments++
		}
	}

	for _, u := range s.users {
		created, err := s.ensureUser(ctx, u, opts.Password, roleIDs, departmentIDs)
		if err != nil {
			return report, err
		}
		if created {
			report.Users++
		}
	}

	s.logger.Info("seed complete", "departments_created", report.Departments, "users_created", report.Users)
	return report, nil
}

func (s *Seeder) seedCatalog(ctx context.Context) (map[string]int64, error) {
	permIDs := make(map[string]int64, len(authz.Vocabulary))
	for _, name := range authz.Vocabulary {
		id, err := s.roles.EnsurePermission(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("seed permission %s: %w", name, err)
		}
		permIDs[name] = id
	}

	roleIDs := make(map[string]int64, len(s.catalog))
	for _, grant := range s.catalog {
		roleID, err := s.roles.EnsureRole(ctx, grant.Role)
		if err != nil {
			return nil, fmt.Errorf("seed role %s: %w", grant.Role, err)
		}
		roleIDs[grant.Role] = roleID
		for _, name := range grant.Permissions {
			if err := s.roles.EnsureRolePermission(ctx, roleID, permIDs[name]); err != nil {
				return nil, fmt.Errorf("link %s to %s: %w", grant.Role, name, err)
			}
		}
	}
	return roleIDs, nil
}

func (s *Seeder) ensureDepartment(ctx context.Context, d Department) (int64, bool, error) {
	var row departmentDatamodel.Department
	found, err := s.store.FindFirst(ctx, &row, store.Filter{"name": d.Name})
	if err != nil {
		return 0, false, fmt.Errorf("lookup department %s: %w", d.Name, err)
	}
	if found {
		return row.ID, false, nil
	}

	row = departmentDatamodel.Department{Name: d.Name, Description: d.Description}
	if err := s.store.Create(ctx, &row); err != nil {
		return 0, false, fmt.Errorf("create department %s: %w", d.Name, err)
	}
	return row.ID, true, nil
}

func (s *Seeder) ensureUser(ctx context.Context, u DemoUser, password string, roleIDs, departmentIDs map[string]int64) (bool, error) {
	var row userDatamodel.User
	found, err := s.store.FindFirst(ctx, &row, store.Filter{"email": u.Email})
	if err != nil {
		return false, fmt.Errorf("lookup user %s: %w", u.Email, err)
	}

	if !found {
		hash, err := s.hash(password)
		if err != nil {
			return false, fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		name := u.Name
		row = userDatamodel.User{UUID: uuid.NewString(), Email: u.Email, Name: &name, PasswordHash: hash}
		if err := s.store.Create(ctx, &row); err != nil {
			return false, fmt.Errorf("create user %s: %w", u.Email, err)
		}
	}

	roleID, ok := roleIDs[u.Role]
	if !ok {
		return false, fmt.Errorf("user %s: role %q is not in the catalog", u.Email, u.Role)
	}
	if err := s.roles.EnsureUserRole(ctx, row.ID, roleID); err != nil {
		return false, fmt.Errorf("assign %s to %s: %w", u.Role, u.Email, err)
	}

	for _, name := range u.Departments {
		deptID, ok := departmentIDs[name]
		if !ok {
			return false, fmt.Errorf("user %s: unknown department %q", u.Email, name)
		}
		n, err := s.store.Count(ctx, &userDatamodel.UserDepartment{}, store.Filter{"user_id": row.ID, "department_id": deptID})
		if err != nil {
			return false, fmt.Errorf("lookup membership: %w", err)
		}
		if n > 0 {
			continue
		}
		if err := s.store.Create(ctx, &userDatamodel.UserDepartment{UserID: row.ID, DepartmentID: deptID}); err != nil {
			return false, fmt.Errorf("add %s to %s: %w", u.Email, name, err)
		}
	}
	return !found, nil
}
