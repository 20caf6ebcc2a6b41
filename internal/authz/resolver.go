package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/frahmantamala/permit-management/internal/core/datamodel/rbac"
	"github.com/frahmantamala/permit-management/internal/store"
)

const tracerName = "github.com/frahmantamala/permit-management/internal/authz"

// Checker is what access decision points ask. *Resolver implements it.
type Checker interface {
	HasRole(ctx context.Context, userID int64, mode Mode, names ...string) (bool, error)
	HasPermission(ctx context.Context, userID int64, mode Mode, names ...string) (bool, error)
}

// Resolver answers role and permission questions for a user id. Every call
// reads the store afresh; nothing is cached between calls, so a revoked role
// stops counting on the next request.
type Resolver struct {
	store  store.Store
	logger *slog.Logger
	tracer trace.Tracer
}

// NewResolver expects st to already be wrapped in store.NewSoftDelete, which
// keeps deleted roles, permissions and links out of every lookup.
func NewResolver(st store.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  st,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *Resolver) startSpan(ctx context.Context, name string, userID int64, mode Mode, names []string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int64("authz.user_id", userID),
		attribute.String("authz.mode", mode.String()),
		attribute.StringSlice("authz.names", names),
	))
}

func endSpan(span trace.Span, ok bool, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Bool("authz.granted", ok))
	span.End()
}

// HasRole reports whether the user holds all (or, with Any, at least one) of
// the named roles. Names that match no role can never be matched.
func (r *Resolver) HasRole(ctx context.Context, userID int64, mode Mode, names ...string) (ok bool, err error) {
	requested := distinct(names)
	ctx, span := r.startSpan(ctx, "authz.HasRole", userID, mode, requested)
	defer func() { endSpan(span, ok, err) }()

	if len(requested) == 0 {
		return false, nil
	}

	var roles []rbac.Role
	if err := r.store.FindMany(ctx, &roles, store.Query{Where: store.Filter{"name": requested}}); err != nil {
		return false, fmt.Errorf("find roles: %w", err)
	}
	if len(roles) == 0 {
		return false, nil
	}

	nameByID := make(map[int64]string, len(roles))
	roleIDs := make([]int64, 0, len(roles))
	for _, role := range roles {
		nameByID[role.ID] = role.Name
		roleIDs = append(roleIDs, role.ID)
	}

	var links []rbac.UserRole
	if err := r.store.FindMany(ctx, &links, store.Query{Where: store.Filter{
		"user_id": userID,
		"role_id": roleIDs,
	}}); err != nil {
		return false, fmt.Errorf("find user roles: %w", err)
	}

	held := make(map[string]struct{}, len(links))
	for _, link := range links {
		held[nameByID[link.RoleID]] = struct{}{}
	}

	ok = mode.satisfied(requested, held)
	r.logger.DebugContext(ctx, "role check",
		"user_id", userID, "mode", mode.String(), "roles", requested, "granted", ok)
	return ok, nil
}

// HasPermission reports whether the user's effective permission set covers
// the named permissions under mode. Direct grants are fetched already
// filtered to the requested permissions; role grants are collected whole and
// compared by name afterwards.
func (r *Resolver) HasPermission(ctx context.Context, userID int64, mode Mode, names ...string) (ok bool, err error) {
	requested := distinct(names)
	ctx, span := r.startSpan(ctx, "authz.HasPermission", userID, mode, requested)
	defer func() { endSpan(span, ok, err) }()

	if len(requested) == 0 {
		return false, nil
	}

	var perms []rbac.Permission
	if err := r.store.FindMany(ctx, &perms, store.Query{Where: store.Filter{"name": requested}}); err != nil {
		return false, fmt.Errorf("find permissions: %w", err)
	}

	held := make(map[string]struct{})
	if len(perms) > 0 {
		nameByID := make(map[int64]string, len(perms))
		permIDs := make([]int64, 0, len(perms))
		for _, p := range perms {
			nameByID[p.ID] = p.Name
			permIDs = append(permIDs, p.ID)
		}

		var direct []rbac.UserPermission
		if err := r.store.FindMany(ctx, &direct, store.Query{Where: store.Filter{
			"user_id":       userID,
			"permission_id": permIDs,
		}}); err != nil {
			return false, fmt.Errorf("find user permissions: %w", err)
		}
		for _, d := range direct {
			held[nameByID[d.PermissionID]] = struct{}{}
		}

		if mode.satisfied(requested, held) {
			r.logger.DebugContext(ctx, "permission check satisfied by direct grants",
				"user_id", userID, "mode", mode.String(), "permissions", requested)
			return true, nil
		}
	}

	fromRoles, err := r.rolePermissionNames(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, name := range fromRoles {
		held[name] = struct{}{}
	}

	ok = mode.satisfied(requested, held)
	r.logger.DebugContext(ctx, "permission check",
		"user_id", userID, "mode", mode.String(), "permissions", requested, "granted", ok)
	return ok, nil
}

// EffectivePermissions returns the sorted union of direct and role-derived
// permission names.
func (r *Resolver) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	var direct []rbac.UserPermission
	if err := r.store.FindMany(ctx, &direct, store.Query{Where: store.Filter{"user_id": userID}}); err != nil {
		return nil, fmt.Errorf("find user permissions: %w", err)
	}
	directIDs := make([]int64, 0, len(direct))
	for _, d := range direct {
		directIDs = append(directIDs, d.PermissionID)
	}
	directNames, err := r.permissionNames(ctx, directIDs)
	if err != nil {
		return nil, err
	}

	fromRoles, err := r.rolePermissionNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	return sortedSet(append(directNames, fromRoles...)), nil
}

// EffectiveRoles returns the sorted names of the roles the user holds.
func (r *Resolver) EffectiveRoles(ctx context.Context, userID int64) ([]string, error) {
	roles, err := r.userRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return sortedSet(names), nil
}

func (r *Resolver) userRoles(ctx context.Context, userID int64) ([]rbac.Role, error) {
	var links []rbac.UserRole
	if err := r.store.FindMany(ctx, &links, store.Query{Where: store.Filter{"user_id": userID}}); err != nil {
		return nil, fmt.Errorf("find user roles: %w", err)
	}
	if len(links) == 0 {
		return nil, nil
	}

	roleIDs := make([]int64, 0, len(links))
	for _, link := range links {
		roleIDs = append(roleIDs, link.RoleID)
	}

	// a link to a deleted role is filtered out here
	var roles []rbac.Role
	if err := r.store.FindMany(ctx, &roles, store.Query{Where: store.Filter{"id": roleIDs}}); err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	return roles, nil
}

func (r *Resolver) rolePermissionNames(ctx context.Context, userID int64) ([]string, error) {
	roles, err := r.userRoles(ctx, userID)
	if err != nil || len(roles) == 0 {
		return nil, err
	}

	roleIDs := make([]int64, 0, len(roles))
	for _, role := range roles {
		roleIDs = append(roleIDs, role.ID)
	}

	var grants []rbac.RolePermission
	if err := r.store.FindMany(ctx, &grants, store.Query{Where: store.Filter{"role_id": roleIDs}}); err != nil {
		return nil, fmt.Errorf("find role permissions: %w", err)
	}

	permIDs := make([]int64, 0, len(grants))
	for _, g := range grants {
		permIDs = append(permIDs, g.PermissionID)
	}
	return r.permissionNames(ctx, permIDs)
}

func (r *Resolver) permissionNames(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var perms []rbac.Permission
	if err := r.store.FindMany(ctx, &perms, store.Query{Where: store.Filter{"id": ids}}); err != nil {
		return nil, fmt.Errorf("find permissions: %w", err)
	}
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	return names, nil
}

func sortedSet(names []string) []string {
	out := distinct(names)
	sort.Strings(out)
	return out
}
