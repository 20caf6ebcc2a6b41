package department

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/permit-management/internal/authz"
	"github.com/frahmantamala/permit-management/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, limit, offset int) ([]*Department, error)
	Get(ctx context.Context, id int64) (*Department, error)
	Create(ctx context.Context, dto CreateDepartmentDTO) (*Department, error)
	Update(ctx context.Context, id int64, dto UpdateDepartmentDTO) (*Department, error)
	Delete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (*Department, error)
	AddMember(ctx context.Context, departmentID int64, dto MemberDTO) error
	RemoveMember(ctx context.Context, departmentID, userID int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	guard   *authz.Guard
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, guard *authz.Guard) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		guard:       guard,
	}
}

func (h *Handler) Routes(r chi.Router) {
	update := h.guard.Middleware(authz.All, authz.DepartmentUpdate)

	r.Get("/", h.GetDepartments)
	r.With(h.guard.Middleware(authz.All, authz.DepartmentCreate)).Post("/", h.CreateDepartment)
	r.Get("/{id}", h.GetDepartment)
	r.With(update).Patch("/{id}", h.UpdateDepartment)
	r.With(h.guard.Middleware(authz.All, authz.DepartmentDelete)).Delete("/{id}", h.DeleteDepartment)
	r.With(h.guard.Middleware(authz.All, authz.DepartmentRestore)).Post("/{id}/restore", h.RestoreDepartment)
	r.With(update).Post("/{id}/members", h.AddMember)
	r.With(update).Delete("/{id}/members/{userID}", h.RemoveMember)
}

func (h *Handler) GetDepartments(w http.ResponseWriter, r *http.Request) {
	limit, offset := 50, 0
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	departments, err := h.Service.List(r.Context(), limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, DepartmentsResponse{
		Departments: departments,
		Limit:       limit,
		Offset:      offset,
	})
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	d, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var dto CreateDepartmentDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	d, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateDepartmentDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	d, err := h.Service.Update(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
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

func (h *Handler) RestoreDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	d, err := h.Service.Restore(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	var dto MemberDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	if err := h.Service.AddMember(r.Context(), id, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := h.IDParam(w, r, "userID")
	if !ok {
		return
	}
	if err := h.Service.RemoveMember(r.Context(), id, userID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
