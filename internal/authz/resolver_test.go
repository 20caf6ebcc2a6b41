package authz_test

import (
	"context"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/permit-management/internal/authz"
	"github.com/frahmantamala/permit-management/internal/core/datamodel/rbac"
	"github.com/frahmantamala/permit-management/internal/store"
	"github.com/frahmantamala/permit-management/internal/store/gormstore"
)

// fixture seeds rbac rows straight through the store.
type fixture struct {
	ctx   context.Context
	store store.Store
}

func (f fixture) role(name string) *rbac.Role {
	r := &rbac.Role{Name: name}
	Expect(f.store.Create(f.ctx, r)).To(Succeed())
	return r
}

func (f fixture) permission(name string) *rbac.Permission {
	p := &rbac.Permission{Name: name}
	Expect(f.store.Create(f.ctx, p)).To(Succeed())
	return p
}

func (f fixture) grantToRole(r *rbac.Role, perms ...*rbac.Permission) {
	for _, p := range perms {
		Expect(f.store.Create(f.ctx, &rbac.RolePermission{RoleID: r.ID, PermissionID: p.ID})).To(Succeed())
	}
}

func (f fixture) assign(userID int64, r *rbac.Role) *rbac.UserRole {
	link := &rbac.UserRole{UserID: userID, RoleID: r.ID}
	Expect(f.store.Create(f.ctx, link)).To(Succeed())
	return link
}

func (f fixture) grantToUser(userID int64, p *rbac.Permission) *rbac.UserPermission {
	link := &rbac.UserPermission{UserID: userID, PermissionID: p.ID}
	Expect(f.store.Create(f.ctx, link)).To(Succeed())
	return link
}

func (f fixture) softDelete(model any, id int64) {
	n, err := f.store.Delete(f.ctx, model, store.Filter{"id": id})
	Expect(err).NotTo(HaveOccurred())
	Expect(n).To(Equal(int64(1)))
}

func newTestStore() store.Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(db.AutoMigrate(
		&rbac.Role{}, &rbac.Permission{}, &rbac.RolePermission{},
		&rbac.UserRole{}, &rbac.UserPermission{},
	)).To(Succeed())
	return store.NewSoftDelete(gormstore.New(db))
}

var _ = Describe("Resolver", func() {
	const userID int64 = 42

	var (
		ctx      context.Context
		f        fixture
		resolver *authz.Resolver
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = fixture{ctx: ctx, store: newTestStore()}
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		resolver = authz.NewResolver(f.store, slogger)
	})

	Describe("HasPermission", func() {
		Context("with a user holding {a, b}", func() {
			BeforeEach(func() {
				a := f.permission("doc:a")
				b := f.permission("doc:b")
				f.permission("doc:c")
				f.grantToUser(userID, a)
				role := f.role("editor")
				f.grantToRole(role, b)
				f.assign(userID, role)
			})

			DescribeTable("applies all and any semantics",
				func(mode authz.Mode, names []string, expected bool) {
					ok, err := resolver.HasPermission(ctx, userID, mode, names...)
					Expect(err).NotTo(HaveOccurred())
					Expect(ok).To(Equal(expected))
				},
				Entry("all of held names", authz.All, []string{"doc:a", "doc:b"}, true),
				Entry("all with one missing", authz.All, []string{"doc:a", "doc:c"}, false),
				Entry("any with one held", authz.Any, []string{"doc:a", "doc:c"}, true),
				Entry("any with none held", authz.Any, []string{"doc:c"}, false),
				Entry("duplicates count once", authz.All, []string{"doc:a", "doc:a", "doc:b"}, true),
				Entry("unknown name under all", authz.All, []string{"doc:a", "nonexistent:perm"}, false),
				Entry("unknown name under any is ignored", authz.Any, []string{"nonexistent:perm", "doc:b"}, true),
				Entry("only an unknown name", authz.All, []string{"nonexistent:perm"}, false),
				Entry("no names", authz.Any, []string{}, false),
				Entry("empty name under all", authz.All, []string{"", "doc:a"}, false),
				Entry("empty name under any is ignored", authz.Any, []string{"", "doc:a"}, true),
				Entry("only an empty name", authz.Any, []string{""}, false),
			)

			It("defaults to all", func() {
				var mode authz.Mode
				Expect(mode).To(Equal(authz.All))
			})
		})

		It("inherits permissions from roles", func() {
			p := f.permission("permit:approve")
			role := f.role("admin")
			f.grantToRole(role, p)
			f.assign(userID, role)

			ok, err := resolver.HasPermission(ctx, userID, authz.Any, "permit:approve")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("honours a direct grant for a user with no roles", func() {
			p := f.permission("permit:verify")
			f.grantToUser(userID, p)

			ok, err := resolver.HasPermission(ctx, userID, authz.Any, "permit:verify")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("treats an unknown user as holding nothing", func() {
			f.permission("permit:read")
			ok, err := resolver.HasPermission(ctx, 9999, authz.Any, "permit:read")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		Describe("soft-deleted links and entities", func() {
			var (
				p    *rbac.Permission
				role *rbac.Role
			)

			BeforeEach(func() {
				p = f.permission("department:read")
				role = f.role("admin")
			})

			It("ignores a deleted role assignment", func() {
				f.grantToRole(role, p)
				link := f.assign(userID, role)
				f.softDelete(&rbac.UserRole{}, link.ID)

				ok, err := resolver.HasPermission(ctx, userID, authz.Any, "department:read")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})

			It("ignores a deleted role", func() {
				f.grantToRole(role, p)
				f.assign(userID, role)
				f.softDelete(&rbac.Role{}, role.ID)

				ok, err := resolver.HasPermission(ctx, userID, authz.Any, "department:read")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})

			It("ignores a deleted role grant", func() {
				f.grantToRole(role, p)
				f.assign(userID, role)
				_, err := f.store.DeleteMany(ctx, &rbac.RolePermission{}, store.Filter{"role_id": role.ID})
				Expect(err).NotTo(HaveOccurred())

				ok, err := resolver.HasPermission(ctx, userID, authz.Any, "department:read")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})

			It("ignores a deleted direct grant", func() {
				link := f.grantToUser(userID, p)
				f.softDelete(&rbac.UserPermission{}, link.ID)

				ok, err := resolver.HasPermission(ctx, userID, authz.Any, "department:read")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})

			It("ignores a deleted permission on both paths", func() {
				f.grantToRole(role, p)
				f.assign(userID, role)
				f.grantToUser(userID, p)
				f.softDelete(&rbac.Permission{}, p.ID)

				ok, err := resolver.HasPermission(ctx, userID, authz.Any, "department:read")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})
		})

		It("follows a user from staff to admin and back", func() {
			staff := f.role("staff")
			admin := f.role("admin")
			f.grantToRole(admin, f.permission("permit:approve"), f.permission("department:read"))
			f.assign(userID, staff)

			ok, err := resolver.HasPermission(ctx, userID, authz.Any, "department:read")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			link := f.assign(userID, admin)
			ok, err = resolver.HasPermission(ctx, userID, authz.Any, "department:read")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			f.softDelete(&rbac.UserRole{}, link.ID)
			ok, err = resolver.HasPermission(ctx, userID, authz.Any, "department:read")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("HasRole", func() {
		BeforeEach(func() {
			f.assign(userID, f.role("staff"))
			f.assign(userID, f.role("security"))
			f.role("admin")
		})

		DescribeTable("applies all and any semantics",
			func(mode authz.Mode, names []string, expected bool) {
				ok, err := resolver.HasRole(ctx, userID, mode, names...)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(Equal(expected))
			},
			Entry("all held", authz.All, []string{"staff", "security"}, true),
			Entry("all with one not held", authz.All, []string{"staff", "admin"}, false),
			Entry("any with one held", authz.Any, []string{"staff", "admin"}, true),
			Entry("any with none held", authz.Any, []string{"admin"}, false),
			Entry("unknown role under all", authz.All, []string{"staff", "ghost"}, false),
			Entry("unknown role under any", authz.Any, []string{"ghost", "security"}, true),
			Entry("duplicates count once", authz.All, []string{"staff", "staff"}, true),
		)

		It("stops counting a role once the assignment is deleted", func() {
			_, err := f.store.DeleteMany(ctx, &rbac.UserRole{}, store.Filter{"user_id": userID})
			Expect(err).NotTo(HaveOccurred())

			ok, err := resolver.HasRole(ctx, userID, authz.Any, "staff", "security")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("effective sets", func() {
		It("unions and sorts direct and role permissions", func() {
			a := f.permission("permit:read")
			b := f.permission("permit:create")
			c := f.permission("department:get")
			role := f.role("staff")
			f.grantToRole(role, b, a)
			f.assign(userID, role)
			f.grantToUser(userID, c)
			f.grantToUser(userID, a)

			perms, err := resolver.EffectivePermissions(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(Equal([]string{"department:get", "permit:create", "permit:read"}))

			roles, err := resolver.EffectiveRoles(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(Equal([]string{"staff"}))
		})

		It("is empty for a user with nothing", func() {
			perms, err := resolver.EffectivePermissions(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(BeEmpty())
		})
	})
})
