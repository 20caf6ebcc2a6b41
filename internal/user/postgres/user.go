package user

import (
	"context"

	userDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/user"
	"github.com/frahmantamala/permit-management/internal/store"
	"github.com/frahmantamala/permit-management/internal/user"
)

type Repository struct {
	store store.Store
}

func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*user.User, error) {
	var row userDatamodel.User
	found, err := r.store.FindUnique(ctx, &row, store.Filter{"id": id})
	if err != nil || !found {
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]*user.User, error) {
	var rows []userDatamodel.User
	if err := r.store.FindMany(ctx, &rows, store.Query{OrderBy: "id ASC", Limit: limit, Offset: offset}); err != nil {
		return nil, err
	}
	users := make([]*user.User, 0, len(rows))
	for i := range rows {
		users = append(users, user.FromDataModel(&rows[i]))
	}
	return users, nil
}

func (r *Repository) UpdateName(ctx context.Context, id int64, name string) (int64, error) {
	return r.store.Update(ctx, &userDatamodel.User{}, store.Filter{"id": id}, store.Values{"name": name})
}

// Delete soft-deletes the account and drops its refresh token in a single
// statement. The explicit deleted filter keeps the interceptor from
// rewriting it.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.store.UpdateMany(ctx, &userDatamodel.User{},
		store.Filter{"id": id, store.DeletedColumn: false},
		store.Values{store.DeletedColumn: true, "refresh_token": nil})
}

func (r *Repository) Restore(ctx context.Context, id int64) (int64, error) {
	return r.store.UpdateMany(ctx, &userDatamodel.User{},
		store.Filter{"id": id, store.DeletedColumn: true},
		store.Values{store.DeletedColumn: false})
}

func (r *Repository) DepartmentIDs(ctx context.Context, userID int64) ([]int64, error) {
	var links []userDatamodel.UserDepartment
	if err := r.store.FindMany(ctx, &links, store.Query{Where: store.Filter{"user_id": userID}, OrderBy: "department_id ASC"}); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.DepartmentID)
	}
	return ids, nil
}
