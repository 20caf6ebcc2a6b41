package postgres

import (
	"context"

	departmentDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/department"
	userDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/user"
	"github.com/frahmantamala/permit-management/internal/department"
	"github.com/frahmantamala/permit-management/internal/store"
)

type DepartmentRepository struct {
	store store.Store
}

func NewDepartmentRepository(st store.Store) *DepartmentRepository {
	return &DepartmentRepository{store: st}
}

func (r *DepartmentRepository) Create(ctx context.Context, d *department.Department) error {
	row := department.ToDataModel(d)
	if err := r.store.Create(ctx, row); err != nil {
		return err
	}
	*d = *department.FromDataModel(row)
	return nil
}

func (r *DepartmentRepository) FindByID(ctx context.Context, id int64) (*department.Department, error) {
	return r.findUnique(ctx, store.Filter{"id": id})
}

func (r *DepartmentRepository) FindByName(ctx context.Context, name string) (*department.Department, error) {
	var row departmentDatamodel.Department
	found, err := r.store.FindFirst(ctx, &row, store.Filter{"name": name})
	if err != nil || !found {
		return nil, err
	}
	return department.FromDataModel(&row), nil
}

func (r *DepartmentRepository) findUnique(ctx context.Context, where store.Filter) (*department.Department, error) {
	var row departmentDatamodel.Department
	found, err := r.store.FindUnique(ctx, &row, where)
	if err != nil || !found {
		return nil, err
	}
	return department.FromDataModel(&row), nil
}

func (r *DepartmentRepository) List(ctx context.Context, ids []int64, limit, offset int) ([]*department.Department, error) {
	where := store.Filter{}
	if ids != nil {
		where["id"] = ids
	}

	var rows []departmentDatamodel.Department
	if err := r.store.FindMany(ctx, &rows, store.Query{Where: where, OrderBy: "name ASC", Limit: limit, Offset: offset}); err != nil {
		return nil, err
	}

	departments := make([]*department.Department, 0, len(rows))
	for i := range rows {
		departments = append(departments, department.FromDataModel(&rows[i]))
	}
	return departments, nil
}

func (r *DepartmentRepository) Update(ctx context.Context, id int64, values store.Values) (int64, error) {
	return r.store.Update(ctx, &departmentDatamodel.Department{}, store.Filter{"id": id}, values)
}

func (r *DepartmentRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.store.Delete(ctx, &departmentDatamodel.Department{}, store.Filter{"id": id, store.DeletedColumn: false})
}

func (r *DepartmentRepository) Restore(ctx context.Context, id int64) (int64, error) {
	return r.store.UpdateMany(ctx, &departmentDatamodel.Department{},
		store.Filter{"id": id, store.DeletedColumn: true},
		store.Values{store.DeletedColumn: false})
}

// Exists reports whether a live department has the id.
func (r *DepartmentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	n, err := r.store.Count(ctx, &departmentDatamodel.Department{}, store.Filter{"id": id})
	return n > 0, err
}

func (r *DepartmentRepository) MemberDepartmentIDs(ctx context.Context, userID int64) ([]int64, error) {
	var links []userDatamodel.UserDepartment
	if err := r.store.FindMany(ctx, &links, store.Query{Where: store.Filter{"user_id": userID}}); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.DepartmentID)
	}
	return ids, nil
}

func (r *DepartmentRepository) IsMember(ctx context.Context, userID, departmentID int64) (bool, error) {
	n, err := r.store.Count(ctx, &userDatamodel.UserDepartment{}, store.Filter{"user_id": userID, "department_id": departmentID})
	return n > 0, err
}

func (r *DepartmentRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	n, err := r.store.Count(ctx, &userDatamodel.User{}, store.Filter{"id": userID})
	return n > 0, err
}

func (r *DepartmentRepository) AddMember(ctx context.Context, userID, departmentID int64) error {
	return r.store.Create(ctx, &userDatamodel.UserDepartment{UserID: userID, DepartmentID: departmentID})
}

// RemoveMember soft-deletes the membership link.
func (r *DepartmentRepository) RemoveMember(ctx context.Context, userID, departmentID int64) (int64, error) {
	return r.store.DeleteMany(ctx, &userDatamodel.UserDepartment{}, store.Filter{"user_id": userID, "department_id": departmentID, store.DeletedColumn: false})
}
