package authz_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/permit-management/internal/authz"
)

var _ = Describe("Catalog", func() {
	It("ships a valid default catalog", func() {
		Expect(authz.DefaultCatalog().Validate()).To(Succeed())
	})

	It("gives admin the approval and department read permissions", func() {
		perms := authz.DefaultCatalog().PermissionsOf(authz.RoleAdmin)
		Expect(perms).To(ContainElements(authz.PermitApprove, authz.DepartmentRead))
	})

	It("gives superadmin the whole vocabulary", func() {
		Expect(authz.DefaultCatalog().PermissionsOf(authz.RoleSuperadmin)).To(ConsistOf(authz.Vocabulary))
	})

	It("keeps roles in declaration order", func() {
		Expect(authz.DefaultCatalog().Roles()).To(Equal([]string{
			authz.RoleStaff, authz.RoleSecurity, authz.RoleAdmin, authz.RoleSuperadmin,
		}))
	})

	It("returns nil for an unknown role", func() {
		Expect(authz.DefaultCatalog().PermissionsOf("ghost")).To(BeNil())
	})

	It("rejects typos and malformed names", func() {
		c := authz.Catalog{
			{Role: "admin", Permissions: []string{"permit:aprove"}},
			{Role: "staff", Permissions: []string{"permit-create"}},
		}
		err := c.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`unknown permission "permit:aprove"`))
		Expect(err.Error()).To(ContainSubstring(`"permit-create" is not resource:action`))
	})

	It("rejects duplicate roles and permissions", func() {
		c := authz.Catalog{
			{Role: "admin", Permissions: []string{authz.PermitRead, authz.PermitRead}},
			{Role: "admin"},
		}
		err := c.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`role "admin" listed twice`))
		Expect(err.Error()).To(ContainSubstring(`permission "permit:read" listed twice`))
	})
})
