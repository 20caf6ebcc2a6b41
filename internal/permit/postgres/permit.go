package postgres

import (
	"context"

	permitDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/permit"
	"github.com/frahmantamala/permit-management/internal/permit"
	"github.com/frahmantamala/permit-management/internal/store"
)

// PermitRepository implements permit.Repository over the entity store. It
// expects a soft-delete aware store, so deleted permits stay invisible
// unless a filter asks for them.
type PermitRepository struct {
	store store.Store
}

func NewPermitRepository(st store.Store) *PermitRepository {
	return &PermitRepository{store: st}
}

func (r *PermitRepository) Create(ctx context.Context, p *permit.Permit) error {
	row := p.ToDataModel()
	if err := r.store.Create(ctx, row); err != nil {
		return err
	}
	*p = *permit.FromDataModel(row)
	return nil
}

func (r *PermitRepository) FindByID(ctx context.Context, id int64) (*permit.Permit, error) {
	return r.findUnique(ctx, store.Filter{"id": id})
}

func (r *PermitRepository) FindByCode(ctx context.Context, code string) (*permit.Permit, error) {
	return r.findUnique(ctx, store.Filter{"verification_code": code})
}

func (r *PermitRepository) findUnique(ctx context.Context, where store.Filter) (*permit.Permit, error) {
	var row permitDatamodel.Permit
	found, err := r.store.FindUnique(ctx, &row, where)
	if err != nil || !found {
		return nil, err
	}
	return permit.FromDataModel(&row), nil
}

func (r *PermitRepository) List(ctx context.Context, filter permit.ListFilter) ([]*permit.Permit, error) {
	var rows []permitDatamodel.Permit
	err := r.store.FindMany(ctx, &rows, store.Query{
		Where:   listWhere(filter),
		OrderBy: "created_at DESC, id DESC",
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
	if err != nil {
		return nil, err
	}

	permits := make([]*permit.Permit, 0, len(rows))
	for i := range rows {
		permits = append(permits, permit.FromDataModel(&rows[i]))
	}
	return permits, nil
}

// listWhere turns a listing filter into explicit column predicates.
func listWhere(filter permit.ListFilter) store.Filter {
	where := store.Filter{}
	if filter.RequestedBy != nil {
		where["requested_by"] = *filter.RequestedBy
	}
	if filter.DepartmentID != nil {
		where["department_id"] = *filter.DepartmentID
	}
	if filter.Type != "" {
		where["type"] = filter.Type
	}
	switch filter.Status {
	case permit.StatusPending:
		where["approved"] = nil
	case permit.StatusApproved:
		where["approved"] = true
	case permit.StatusRejected:
		where["approved"] = false
	}
	if filter.From != nil {
		where["valid_from"] = store.Gte{Value: *filter.From}
	}
	if filter.Until != nil {
		where["valid_until"] = store.Lte{Value: *filter.Until}
	}
	if filter.IncludeDeleted {
		where[store.DeletedColumn] = []bool{false, true}
	}
	return where
}

func (r *PermitRepository) Decide(ctx context.Context, id int64, d permit.Decision) (int64, error) {
	return r.store.Update(ctx, &permitDatamodel.Permit{},
		store.Filter{"id": id, "approved": nil},
		store.Values{
			"approved":   d.Approved,
			"reason":     d.Reason,
			"decided_by": d.DecidedBy,
		})
}

func (r *PermitRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.store.Delete(ctx, &permitDatamodel.Permit{}, store.Filter{"id": id, store.DeletedColumn: false})
}

func (r *PermitRepository) Restore(ctx context.Context, id int64) (int64, error) {
	return r.store.UpdateMany(ctx, &permitDatamodel.Permit{},
		store.Filter{"id": id, store.DeletedColumn: true},
		store.Values{store.DeletedColumn: false})
}
