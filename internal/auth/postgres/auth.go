package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/permit-management/internal/core/datamodel/rbac"
	userDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/user"
	"github.com/frahmantamala/permit-management/internal/store"
)

type Repository struct {
	store store.Store
}

func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var user userDatamodel.User
	found, err := r.store.FindUnique(ctx, &user, store.Filter{"email": email})
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var user userDatamodel.User
	found, err := r.store.FindUnique(ctx, &user, store.Filter{"id": id})
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) Create(ctx context.Context, user *userDatamodel.User) error {
	return r.store.Create(ctx, user)
}

func (r *Repository) SetRefreshToken(ctx context.Context, userID int64, digest *string) error {
	_, err := r.store.Update(ctx, &userDatamodel.User{}, store.Filter{"id": userID}, store.Values{"refresh_token": digest})
	return err
}

var errRoleMissing = errors.New("role is not seeded")

// AssignRole links the user to the named role, which must already exist.
func (r *Repository) AssignRole(ctx context.Context, userID int64, role string) error {
	var row rbac.Role
	if err := r.store.FindFirstOrFail(ctx, &row, store.Filter{"name": role}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%s: %w", role, errRoleMissing)
		}
		return err
	}
	return r.store.Create(ctx, &rbac.UserRole{UserID: userID, RoleID: row.ID})
}
