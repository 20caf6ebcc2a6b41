package rest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/permit-management/internal/auth"
	"github.com/frahmantamala/permit-management/internal/authz"
	"github.com/frahmantamala/permit-management/internal/department"
	"github.com/frahmantamala/permit-management/internal/permit"
	"github.com/frahmantamala/permit-management/internal/role"
	"github.com/frahmantamala/permit-management/internal/transport"
	"github.com/frahmantamala/permit-management/internal/user"
)

const apiPrefix = "/api/v1"

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		var err error
		doc, err = openapi3.NewLoader().LoadFromFile("../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
	})

	It("is a valid OpenAPI 3 document", func() {
		Expect(doc.Validate(context.Background())).To(Succeed())
	})

	It("documents every mounted API route", func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		guard := authz.NewGuard(denyAll{}, lg, nil)
		router := chi.NewRouter()
		RegisterAllRoutes(router, Handlers{
			Auth:       auth.NewHandler(stubAuthService{}, lg),
			Permit:     permit.NewHandler(nil, guard, lg),
			Department: department.NewHandler(transport.NewBaseHandler(lg), nil, guard),
			User:       user.NewHandler(nil, guard),
			Role:       role.NewHandler(nil, guard, lg),
			Health:     NewHealthHandler(nil),
		}, RouterOptions{}, lg)

		var undocumented []string
		walk := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			if !strings.HasPrefix(route, apiPrefix) {
				return nil
			}
			path := strings.TrimSuffix(strings.TrimPrefix(route, apiPrefix), "/")
			item := doc.Paths.Find(path)
			if item == nil || item.GetOperation(method) == nil {
				undocumented = append(undocumented, method+" "+path)
			}
			return nil
		}
		Expect(chi.Walk(router, walk)).To(Succeed())
		Expect(undocumented).To(BeEmpty())
	})
})
