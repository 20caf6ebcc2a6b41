package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frahmantamala/permit-management/internal/auth"
	"github.com/frahmantamala/permit-management/internal/department"
	"github.com/frahmantamala/permit-management/internal/permit"
	"github.com/frahmantamala/permit-management/internal/role"
	"github.com/frahmantamala/permit-management/internal/transport/middleware"
	"github.com/frahmantamala/permit-management/internal/transport/swagger"
	"github.com/frahmantamala/permit-management/internal/user"
)

// Handlers groups what RegisterAllRoutes mounts. A nil handler leaves its
// routes out.
type Handlers struct {
	Auth       *auth.Handler
	Permit     *permit.Handler
	Department *department.Handler
	User       *user.Handler
	Role       *role.Handler
	Health     *HealthHandler
}

type RouterOptions struct {
	AllowedOrigins string
	OpenAPIPath    string
	// An empty MetricsPath leaves the scrape endpoint unmounted.
	MetricsPath    string
	MetricsHandler http.Handler
	HTTPMetrics    *middleware.HTTPMetrics
}

func RegisterAllRoutes(router chi.Router, h Handlers, opts RouterOptions, logger *slog.Logger) {
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	if opts.HTTPMetrics != nil {
		router.Use(opts.HTTPMetrics.Middleware)
	}
	router.Use(middleware.LoggingMiddleware(logger))

	if opts.MetricsPath != "" {
		handler := opts.MetricsHandler
		if handler == nil {
			handler = promhttp.Handler()
		}
		router.Method(http.MethodGet, opts.MetricsPath, handler)
	}

	openAPIPath := opts.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/signup", h.Auth.Signup)
			ar.Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.RefreshToken)
			ar.With(h.Auth.AuthMiddleware).Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.Permit != nil {
				pr.Route("/permits", h.Permit.Routes)
			}
			if h.Department != nil {
				pr.Route("/departments", h.Department.Routes)
			}
			if h.User != nil {
				pr.Route("/users", h.User.Routes)
			}
			if h.Role != nil {
				pr.Route("/rbac", h.Role.Routes)
			}
		})
	})
}
