package permit_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/authz"
	permitDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/permit"
	"github.com/frahmantamala/permit-management/internal/permit"
	permitPostgres "github.com/frahmantamala/permit-management/internal/permit/postgres"
	"github.com/frahmantamala/permit-management/internal/store"
	"github.com/frahmantamala/permit-management/internal/store/gormstore"
)

var _ = Describe("Permit Handler Integration", func() {
	var router chi.Router

	do := func(method, path string, userID int64, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if userID != 0 {
			req.Header.Set("X-Test-User", strconv.FormatInt(userID, 10))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	create := func(userID int64) permit.Permit {
		w := do(http.MethodPost, "/permits", userID, `{
			"full_name": "Rina Hartono",
			"employee_id": "EMP-001",
			"department_id": 1,
			"type": "restricted",
			"valid_from": "2026-03-01",
			"valid_until": "2026-03-05"
		}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
		var p permit.Permit
		Expect(json.NewDecoder(w.Body).Decode(&p)).To(Succeed())
		return p
	}

	BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&permitDatamodel.Permit{})).To(Succeed())

		slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
		checker := &grantChecker{grants: map[int64][]string{
			staffID: {authz.PermitCreate},
			otherID: {authz.PermitCreate},
			adminID: {authz.PermitRead, authz.PermitApprove, authz.PermitDelete},
		}}
		repo := permitPostgres.NewPermitRepository(store.NewSoftDelete(gormstore.New(db)))
		guard := authz.NewGuard(checker, slogger, nil)
		service := permit.NewService(repo, guard,
			&mockDepartments{known: map[int64]bool{1: true}}, nil, 365*24*time.Hour, slogger)
		handler := permit.NewHandler(service, guard, slogger)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if id, err := strconv.ParseInt(r.Header.Get("X-Test-User"), 10, 64); err == nil {
					r = r.WithContext(internal.ContextWithUserID(r.Context(), id))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Route("/permits", handler.Routes)
	})

	It("creates a permit for the caller", func() {
		p := create(staffID)
		Expect(p.Status).To(Equal(permit.StatusPending))
		Expect(p.RequestedBy).To(Equal(staffID))
	})

	It("answers 401 without identity and 403 without permission", func() {
		Expect(do(http.MethodPost, "/permits", 0, `{}`).Code).To(Equal(http.StatusUnauthorized))
		p := create(staffID)
		Expect(do(http.MethodGet, "/permits/"+strconv.FormatInt(p.ID, 10), otherID, "").Code).To(Equal(http.StatusForbidden))
	})

	It("answers 400 for a malformed body or id", func() {
		Expect(do(http.MethodPost, "/permits", staffID, `{not json`).Code).To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodGet, "/permits/abc", staffID, "").Code).To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodGet, "/permits?from=someday", staffID, "").Code).To(Equal(http.StatusBadRequest))
	})

	It("decides once and then reports a conflict", func() {
		p := create(staffID)
		path := "/permits/" + strconv.FormatInt(p.ID, 10) + "/decision"

		Expect(do(http.MethodPost, path, adminID, `{"approved": false}`).Code).To(Equal(http.StatusBadRequest))

		w := do(http.MethodPost, path, adminID, `{"approved": false, "reason": "no escort"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		var decided permit.Permit
		Expect(json.NewDecoder(w.Body).Decode(&decided)).To(Succeed())
		Expect(decided.Status).To(Equal(permit.StatusRejected))

		Expect(do(http.MethodPost, path, adminID, `{"approved": true}`).Code).To(Equal(http.StatusConflict))
	})

	It("checks the approve permission before reading the decision", func() {
		p := create(staffID)
		path := "/permits/" + strconv.FormatInt(p.ID, 10) + "/decision"

		w := do(http.MethodPost, path, otherID, `{"approved":"nope"}`)
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(w.Body.String()).NotTo(ContainSubstring("VALIDATION"))
		Expect(do(http.MethodPost, "/permits/abc/decision", otherID, `{not json`).Code).To(Equal(http.StatusForbidden))

		Expect(do(http.MethodPost, path, adminID, `{"approved":"nope"}`).Code).To(Equal(http.StatusBadRequest))
	})

	It("refuses restore and verify to callers without those permissions", func() {
		Expect(do(http.MethodPost, "/permits/abc/restore", adminID, "").Code).To(Equal(http.StatusForbidden))
		Expect(do(http.MethodGet, "/permits/verify/whatever", staffID, "").Code).To(Equal(http.StatusForbidden))
	})

	It("lists only the caller's own permits for staff", func() {
		create(staffID)
		create(otherID)

		w := do(http.MethodGet, "/permits?status=pending", staffID, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var body struct {
			Permits []permit.Permit `json:"permits"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Permits).To(HaveLen(1))

		w = do(http.MethodGet, "/permits", adminID, "")
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Permits).To(HaveLen(2))
	})

	It("hides a deleted permit", func() {
		p := create(staffID)
		path := "/permits/" + strconv.FormatInt(p.ID, 10)

		Expect(do(http.MethodDelete, path, adminID, "").Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodGet, path, adminID, "").Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodDelete, path, adminID, "").Code).To(Equal(http.StatusNotFound))
	})
})
