package permit

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/authz"
	"github.com/frahmantamala/permit-management/internal/core/common/validation"
	"github.com/frahmantamala/permit-management/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreatePermitDTO) (*Permit, error)
	List(ctx context.Context, q ListQuery) ([]*Permit, error)
	Get(ctx context.Context, id int64) (*Permit, error)
	Decide(ctx context.Context, id int64, dto DecisionDTO) (*Permit, error)
	Delete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (*Permit, error)
	Verify(ctx context.Context, code string) (*Verification, error)
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

// Routes mounts the permit endpoints. Authentication is applied by the caller.
// List and get allow the owner through, so their checks stay in the service.
func (h *Handler) Routes(r chi.Router) {
	r.With(h.guard.Middleware(authz.All, authz.PermitCreate)).Post("/", h.CreatePermit)
	r.Get("/", h.ListPermits)
	r.With(h.guard.Middleware(authz.All, authz.PermitVerify)).Get("/verify/{code}", h.VerifyPermit)
	r.Get("/{id}", h.GetPermit)
	r.With(h.guard.Middleware(authz.All, authz.PermitDelete)).Delete("/{id}", h.DeletePermit)
	r.With(h.guard.Middleware(authz.All, authz.PermitApprove)).Post("/{id}/decision", h.DecidePermit)
	r.With(h.guard.Middleware(authz.All, authz.PermitRestore)).Post("/{id}/restore", h.RestorePermit)
}

func (h *Handler) CreatePermit(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermitDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	p, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListPermits(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	permits, err := h.Service.List(r.Context(), q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	limit, offset := q.page()
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"permits": permits,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *Handler) GetPermit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) DecidePermit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	var dto DecisionDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	p, err := h.Service.Decide(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePermit(w http.ResponseWriter, r *http.Request) {
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

func (h *Handler) RestorePermit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Service.Restore(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) VerifyPermit(w http.ResponseWriter, r *http.Request) {
	v, err := h.Service.Verify(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, v)
}

func parseListQuery(values url.Values) (ListQuery, error) {
	q := ListQuery{
		Status: values.Get("status"),
		Type:   values.Get("type"),
	}

	if raw := values.Get("department_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, internal.NewValidationFieldError("department_id", "department_id must be an integer", internal.ErrCodeValidationFailed)
		}
		q.DepartmentID = &id
	}
	if raw := values.Get("from"); raw != "" {
		from, appErr := validation.ParseDate("from", raw)
		if appErr != nil {
			return q, appErr
		}
		q.From = &from
	}
	if raw := values.Get("until"); raw != "" {
		until, appErr := validation.ParseDate("until", raw)
		if appErr != nil {
			return q, appErr
		}
		q.Until = &until
	}

	for name, dst := range map[string]*bool{"include_deleted": &q.IncludeDeleted, "mine": &q.Mine} {
		if raw := values.Get(name); raw != "" {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return q, internal.NewValidationFieldError(name, name+" must be a boolean", internal.ErrCodeValidationFailed)
			}
			*dst = b
		}
	}

	if l, err := strconv.Atoi(values.Get("limit")); err == nil {
		q.Limit = l
	}
	if o, err := strconv.Atoi(values.Get("offset")); err == nil {
		q.Offset = o
	}
	return q, nil
}
