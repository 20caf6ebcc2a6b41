package role

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/permit-management/internal/authz"
	"github.com/frahmantamala/permit-management/internal/transport"
)

type ServiceAPI interface {
	ListRoles(ctx context.Context) ([]*Role, error)
	AssignRole(ctx context.Context, userID int64, dto AssignRoleDTO) error
	RevokeRole(ctx context.Context, userID int64, role string) error
	GrantPermission(ctx context.Context, userID int64, dto GrantPermissionDTO) error
	RevokePermission(ctx context.Context, userID int64, permission string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	guard   *authz.Guard
}

func NewHandler(service ServiceAPI, guard *authz.Guard, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		guard:       guard,
	}
}

// Routes mounts role administration. None of it has an ownership
// alternative, so every route is guarded before the handler runs.
func (h *Handler) Routes(r chi.Router) {
	r.With(h.guard.Middleware(authz.All, authz.RoleRead)).Get("/roles", h.ListRoles)
	r.With(h.guard.Middleware(authz.All, authz.RoleAssign)).Post("/users/{userID}/roles", h.AssignRole)
	r.With(h.guard.Middleware(authz.All, authz.RoleRevoke)).Delete("/users/{userID}/roles/{role}", h.RevokeRole)
	r.With(h.guard.Middleware(authz.All, authz.PermissionGrant)).Post("/users/{userID}/permissions", h.GrantPermission)
	r.With(h.guard.Middleware(authz.All, authz.PermissionRevoke)).Delete("/users/{userID}/permissions/{permission}", h.RevokePermission)
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.ListRoles(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RolesResponse{Roles: roles})
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.IDParam(w, r, "userID")
	if !ok {
		return
	}
	var dto AssignRoleDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	if err := h.Service.AssignRole(r.Context(), userID, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.IDParam(w, r, "userID")
	if !ok {
		return
	}
	if err := h.Service.RevokeRole(r.Context(), userID, chi.URLParam(r, "role")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.IDParam(w, r, "userID")
	if !ok {
		return
	}
	var dto GrantPermissionDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	if err := h.Service.GrantPermission(r.Context(), userID, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.IDParam(w, r, "userID")
	if !ok {
		return
	}
	if err := h.Service.RevokePermission(r.Context(), userID, chi.URLParam(r, "permission")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
