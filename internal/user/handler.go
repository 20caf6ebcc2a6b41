package user

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/authz"
	"github.com/frahmantamala/permit-management/internal/transport"
	"github.com/frahmantamala/permit-management/pkg/logger"
)

type ServiceAPI interface {
	Me(ctx context.Context) (*Profile, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, error)
	Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error)
	Delete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	guard   *authz.Guard
}

func NewHandler(svc ServiceAPI, guard *authz.Guard) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		guard:       guard,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.With(h.guard.Middleware(authz.All, authz.UserRead)).Get("/", h.ListUsers)
	r.Get("/me", h.GetCurrentUser)
	r.Get("/{id}", h.GetUser)
	r.With(h.selfOr(authz.UserUpdate)).Patch("/{id}", h.UpdateUser)
	r.With(h.guard.Middleware(authz.All, authz.UserDelete)).Delete("/{id}", h.DeleteUser)
	r.With(h.guard.Middleware(authz.All, authz.UserRestore)).Post("/{id}/restore", h.RestoreUser)
}

// selfOr lets callers through when {id} is their own account and otherwise
// requires permission. The service repeats the same clause.
func (h *Handler) selfOr(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerID, ok := internal.CurrentUserID(r.Context())
			if !ok {
				h.HandleServiceError(w, internal.ErrUnauthenticated)
				return
			}
			if chi.URLParam(r, "id") != strconv.FormatInt(callerID, 10) {
				if _, err := h.guard.RequirePermission(r.Context(), authz.All, permission); err != nil {
					h.HandleServiceError(w, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.Me(r.Context())
	if err != nil {
		logger.From(r.Context()).Error("GetCurrentUser: service Me failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	u, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := 20, 0
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	users, err := h.Service.List(r.Context(), limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, UsersResponse{Users: users, Limit: limit, Offset: offset})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	u, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RestoreUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	u, err := h.Service.Restore(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}
