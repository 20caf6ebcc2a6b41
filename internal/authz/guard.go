package authz

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/transport"
)

// Guard is the access decision point shared by services and routes. It never
// evaluates ownership; callers that allow "my own record" check that first
// and only consult the guard when it does not hold.
type Guard struct {
	checker Checker
	logger  *slog.Logger
	metrics *Metrics
}

// NewGuard builds a guard. metrics may be nil.
func NewGuard(checker Checker, logger *slog.Logger, metrics *Metrics) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{checker: checker, logger: logger, metrics: metrics}
}

// RequirePermission returns the current user id when the user holds names
// under mode, internal.ErrUnauthenticated when there is no identity, and
// internal.ErrForbidden when the check fails.
func (g *Guard) RequirePermission(ctx context.Context, mode Mode, names ...string) (int64, error) {
	return g.require(ctx, "permission", mode, names, g.checker.HasPermission)
}

// RequireRole is RequirePermission for role names.
func (g *Guard) RequireRole(ctx context.Context, mode Mode, names ...string) (int64, error) {
	return g.require(ctx, "role", mode, names, g.checker.HasRole)
}

// Can answers the permission question without turning a refusal into an
// error, for operations that narrow their result instead of failing. A
// missing identity is still internal.ErrUnauthenticated.
func (g *Guard) Can(ctx context.Context, mode Mode, names ...string) (int64, bool, error) {
	userID, ok := internal.CurrentUserID(ctx)
	if !ok {
		g.metrics.observe("permission", mode, outcomeUnauthenticated)
		return 0, false, internal.ErrUnauthenticated
	}

	granted, err := g.checker.HasPermission(ctx, userID, mode, names...)
	if err != nil {
		g.metrics.observe("permission", mode, outcomeError)
		return userID, false, fmt.Errorf("authorize user %d: %w", userID, err)
	}
	if granted {
		g.metrics.observe("permission", mode, outcomeGranted)
	} else {
		g.metrics.observe("permission", mode, outcomeDenied)
	}
	return userID, granted, nil
}

type checkFunc func(ctx context.Context, userID int64, mode Mode, names ...string) (bool, error)

func (g *Guard) require(ctx context.Context, kind string, mode Mode, names []string, check checkFunc) (int64, error) {
	userID, ok := internal.CurrentUserID(ctx)
	if !ok {
		g.metrics.observe(kind, mode, outcomeUnauthenticated)
		return 0, internal.ErrUnauthenticated
	}

	granted, err := check(ctx, userID, mode, names...)
	if err != nil {
		g.metrics.observe(kind, mode, outcomeError)
		return 0, fmt.Errorf("authorize user %d: %w", userID, err)
	}
	if !granted {
		g.metrics.observe(kind, mode, outcomeDenied)
		g.logger.WarnContext(ctx, "access denied",
			"user_id", userID,
			"check", kind,
			"mode", mode.String(),
			"required", names)
		return 0, internal.ErrForbidden
	}

	g.metrics.observe(kind, mode, outcomeGranted)
	return userID, nil
}

// Middleware guards a route that has no ownership alternative. A refused
// caller is answered before the handler parses the path or the body.
func (g *Guard) Middleware(mode Mode, names ...string) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(g.logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := g.RequirePermission(r.Context(), mode, names...); err != nil {
				base.HandleServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
