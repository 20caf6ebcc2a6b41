package department_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/authz"
	departmentDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/department"
	userDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/user"
	"github.com/frahmantamala/permit-management/internal/department"
	departmentPostgres "github.com/frahmantamala/permit-management/internal/department/postgres"
	"github.com/frahmantamala/permit-management/internal/store"
	"github.com/frahmantamala/permit-management/internal/store/gormstore"
	"github.com/frahmantamala/permit-management/internal/transport"
)

type grantChecker struct {
	grants map[int64][]string
	calls  int
}

func (g *grantChecker) HasPermission(_ context.Context, userID int64, mode authz.Mode, names ...string) (bool, error) {
	g.calls++
	held := map[string]bool{}
	for _, n := range g.grants[userID] {
		held[n] = true
	}
	matched := 0
	for _, n := range names {
		if held[n] {
			matched++
		}
	}
	if mode == authz.Any {
		return matched > 0, nil
	}
	return len(names) > 0 && matched == len(names), nil
}

func (g *grantChecker) HasRole(context.Context, int64, authz.Mode, ...string) (bool, error) {
	return false, nil
}

var _ = Describe("Department Service", func() {
	var (
		ctx       context.Context
		raw       store.Store
		repo      *departmentPostgres.DepartmentRepository
		checker   *grantChecker
		guard     *authz.Guard
		service   *department.Service
		member    *userDatamodel.User
		outsider  *userDatamodel.User
		admin     *userDatamodel.User
		security  *departmentDatamodel.Department
		logistics *departmentDatamodel.Department
	)

	as := func(u *userDatamodel.User) context.Context {
		return internal.ContextWithUserID(ctx, u.ID)
	}

	newUser := func(email string) *userDatamodel.User {
		u := &userDatamodel.User{UUID: email, Email: email, PasswordHash: "x"}
		Expect(raw.Create(ctx, u)).To(Succeed())
		return u
	}

	newDepartment := func(name string) *departmentDatamodel.Department {
		d := &departmentDatamodel.Department{Name: name}
		Expect(raw.Create(ctx, d)).To(Succeed())
		return d
	}

	BeforeEach(func() {
		ctx = context.Background()
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&departmentDatamodel.Department{}, &userDatamodel.User{}, &userDatamodel.UserDepartment{})).To(Succeed())

		raw = store.NewSoftDelete(gormstore.New(db))
		repo = departmentPostgres.NewDepartmentRepository(raw)

		member = newUser("member@example.com")
		outsider = newUser("outsider@example.com")
		admin = newUser("admin@example.com")
		security = newDepartment("Security")
		logistics = newDepartment("Logistics")
		Expect(repo.AddMember(ctx, member.ID, security.ID)).To(Succeed())

		checker = &grantChecker{grants: map[int64][]string{
			admin.ID: {authz.DepartmentCreate, authz.DepartmentRead, authz.DepartmentGet, authz.DepartmentUpdate, authz.DepartmentDelete, authz.DepartmentRestore},
		}}
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		guard = authz.NewGuard(checker, slogger, nil)
		service = department.NewService(repo, guard, slogger)
	})

	Describe("List", func() {
		It("shows members only their own departments", func() {
			departments, err := service.List(as(member), 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(departments).To(HaveLen(1))
			Expect(departments[0].ID).To(Equal(security.ID))
		})

		It("returns an empty list to users without memberships", func() {
			departments, err := service.List(as(outsider), 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(departments).To(BeEmpty())
		})

		It("shows every live department to department:read holders", func() {
			Expect(service.Delete(as(admin), logistics.ID)).To(Succeed())

			departments, err := service.List(as(admin), 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(departments).To(HaveLen(1))
		})
	})

	Describe("Get", func() {
		It("lets members in without consulting grants", func() {
			d, err := service.Get(as(member), security.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Name).To(Equal("Security"))
			Expect(checker.calls).To(BeZero())
		})

		It("forbids non-members without grants", func() {
			_, err := service.Get(as(member), logistics.ID)
			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("stops seeing a department once the membership is removed", func() {
			Expect(service.RemoveMember(as(admin), security.ID, member.ID)).To(Succeed())
			_, err := service.Get(as(member), security.ID)
			Expect(err).To(MatchError(internal.ErrForbidden))
		})
	})

	Describe("Create and Update", func() {
		It("normalises names and refuses duplicates", func() {
			d, err := service.Create(as(admin), department.CreateDepartmentDTO{Name: "  Field   Ops "})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Name).To(Equal("Field Ops"))

			_, err = service.Create(as(admin), department.CreateDepartmentDTO{Name: "Field Ops"})
			Expect(err).To(MatchError(internal.ErrDepartmentExists))
		})

		It("requires department:create", func() {
			_, err := service.Create(as(member), department.CreateDepartmentDTO{Name: "Field Ops"})
			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("updates only the given fields", func() {
			desc := "Gate and perimeter"
			d, err := service.Update(as(admin), security.ID, department.UpdateDepartmentDTO{Description: &desc})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Name).To(Equal("Security"))
			Expect(d.Description).To(Equal(desc))

			name := "Logistics"
			_, err = service.Update(as(admin), security.ID, department.UpdateDepartmentDTO{Name: &name})
			Expect(err).To(MatchError(internal.ErrDepartmentExists))
		})
	})

	Describe("Delete and Restore", func() {
		It("round-trips through a soft delete", func() {
			Expect(service.Delete(as(admin), logistics.ID)).To(Succeed())
			Expect(service.Delete(as(admin), logistics.ID)).To(MatchError(internal.ErrDepartmentNotFound))

			exists, err := repo.Exists(ctx, logistics.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())

			d, err := service.Restore(as(admin), logistics.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Deleted).To(BeFalse())
		})
	})

	Describe("Members", func() {
		It("adds a member once and rejects unknown users", func() {
			Expect(service.AddMember(as(admin), logistics.ID, department.MemberDTO{UserID: outsider.ID})).To(Succeed())
			Expect(service.AddMember(as(admin), logistics.ID, department.MemberDTO{UserID: outsider.ID})).To(Succeed())

			ids, err := repo.MemberDepartmentIDs(ctx, outsider.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(ConsistOf(logistics.ID))

			err = service.AddMember(as(admin), logistics.ID, department.MemberDTO{UserID: 9999})
			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})

		It("reports removing a non-member as not found", func() {
			err := service.RemoveMember(as(admin), logistics.ID, member.ID)
			Expect(err).To(MatchError(internal.ErrMembershipNotFound))
		})
	})

	Describe("HTTP", func() {
		var (
			router chi.Router
			caller *userDatamodel.User
		)

		serve := func(method, path, body string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
			return w
		}

		BeforeEach(func() {
			caller = admin
			handler := department.NewHandler(transport.NewBaseHandler(nil), service, guard)
			router = chi.NewRouter()
			router.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					next.ServeHTTP(w, r.WithContext(internal.ContextWithUserID(r.Context(), caller.ID)))
				})
			})
			router.Route("/departments", handler.Routes)
		})

		It("creates and lists departments", func() {
			w := serve(http.MethodPost, "/departments", `{"name":"Warehouse"}`)
			Expect(w.Code).To(Equal(http.StatusCreated))

			w = serve(http.MethodGet, "/departments?limit=2", "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var body department.DepartmentsResponse
			Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
			Expect(body.Limit).To(Equal(2))
			Expect(body.Departments).To(HaveLen(2))
		})

		It("answers 400 for an empty update and 404 for a missing department", func() {
			Expect(serve(http.MethodPatch, "/departments/1", `{}`).Code).To(Equal(http.StatusBadRequest))
			Expect(serve(http.MethodGet, "/departments/999", "").Code).To(Equal(http.StatusNotFound))
		})

		It("refuses writes before reading a malformed request", func() {
			caller = member
			Expect(serve(http.MethodPost, "/departments", `{"name":42}`).Code).To(Equal(http.StatusForbidden))
			Expect(serve(http.MethodPatch, "/departments/abc", `{not json`).Code).To(Equal(http.StatusForbidden))
			Expect(serve(http.MethodPost, "/departments/1/members", `{"user_id":"x"}`).Code).To(Equal(http.StatusForbidden))
			Expect(serve(http.MethodDelete, "/departments/1", "").Code).To(Equal(http.StatusForbidden))
		})

		It("still lets a member read their own department", func() {
			caller = member
			Expect(serve(http.MethodGet, "/departments/"+strconv.FormatInt(security.ID, 10), "").Code).To(Equal(http.StatusOK))
		})
	})
})
