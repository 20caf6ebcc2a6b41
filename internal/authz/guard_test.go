package authz_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/authz"
)

type stubChecker struct {
	granted bool
	err     error
	calls   int
	names   []string
	mode    authz.Mode
}

func (s *stubChecker) HasPermission(_ context.Context, _ int64, mode authz.Mode, names ...string) (bool, error) {
	s.calls++
	s.mode = mode
	s.names = names
	return s.granted, s.err
}

func (s *stubChecker) HasRole(ctx context.Context, userID int64, mode authz.Mode, names ...string) (bool, error) {
	return s.HasPermission(ctx, userID, mode, names...)
}

var _ = Describe("Guard", func() {
	var (
		checker *stubChecker
		reg     *prometheus.Registry
		metrics *authz.Metrics
		guard   *authz.Guard
		authed  context.Context
	)

	BeforeEach(func() {
		checker = &stubChecker{}
		reg = prometheus.NewRegistry()
		metrics = authz.NewMetrics(reg)
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		guard = authz.NewGuard(checker, slogger, metrics)
		authed = internal.ContextWithUserID(context.Background(), 5)
	})

	It("rejects a request without identity before asking the resolver", func() {
		_, err := guard.RequirePermission(context.Background(), authz.All, authz.PermitApprove)
		Expect(err).To(MatchError(internal.ErrUnauthenticated))
		Expect(checker.calls).To(BeZero())
	})

	It("returns the user id when granted", func() {
		checker.granted = true
		userID, err := guard.RequirePermission(authed, authz.Any, authz.PermitRead, authz.PermitGet)
		Expect(err).NotTo(HaveOccurred())
		Expect(userID).To(Equal(int64(5)))
		Expect(checker.mode).To(Equal(authz.Any))
		Expect(checker.names).To(Equal([]string{authz.PermitRead, authz.PermitGet}))
	})

	It("maps a false answer to forbidden", func() {
		_, err := guard.RequireRole(authed, authz.All, authz.RoleAdmin)
		Expect(err).To(MatchError(internal.ErrForbidden))
	})

	It("surfaces resolver failures as plain errors", func() {
		checker.err = errors.New("db down")
		_, err := guard.RequirePermission(authed, authz.All, authz.PermitApprove)
		Expect(err).To(HaveOccurred())
		_, isApp := internal.IsAppError(err)
		Expect(isApp).To(BeFalse())
	})

	It("counts decisions by outcome", func() {
		checker.granted = true
		_, _ = guard.RequirePermission(authed, authz.All, authz.PermitApprove)
		checker.granted = false
		_, _ = guard.RequirePermission(authed, authz.All, authz.PermitApprove)
		_, _ = guard.RequirePermission(context.Background(), authz.All, authz.PermitApprove)

		Expect(testutil.ToFloat64(metrics.Decisions("permission", authz.All, "granted"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metrics.Decisions("permission", authz.All, "denied"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metrics.Decisions("permission", authz.All, "unauthenticated"))).To(Equal(1.0))
	})

	It("answers Can without an error on refusal", func() {
		userID, allowed, err := guard.Can(authed, authz.Any, authz.PermitRead)
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeFalse())
		Expect(userID).To(Equal(int64(5)))

		_, _, err = guard.Can(context.Background(), authz.Any, authz.PermitRead)
		Expect(err).To(MatchError(internal.ErrUnauthenticated))
	})

	Describe("Middleware", func() {
		var next http.Handler

		BeforeEach(func() {
			next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		})

		serve := func(ctx context.Context) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/departments", nil).WithContext(ctx)
			w := httptest.NewRecorder()
			guard.Middleware(authz.Any, authz.DepartmentRead)(next).ServeHTTP(w, req)
			return w
		}

		It("passes through when granted", func() {
			checker.granted = true
			Expect(serve(authed).Code).To(Equal(http.StatusNoContent))
		})

		It("answers 403 when denied", func() {
			w := serve(authed)
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(w.Body.String()).To(ContainSubstring("FORBIDDEN"))
		})

		It("answers 401 without identity", func() {
			Expect(serve(context.Background()).Code).To(Equal(http.StatusUnauthorized))
		})

		It("answers 500 when the resolver fails", func() {
			checker.err = errors.New("db down")
			Expect(serve(authed).Code).To(Equal(http.StatusInternalServerError))
		})
	})
})
