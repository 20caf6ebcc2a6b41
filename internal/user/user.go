package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/user"
)

type User struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is the caller's own view of their account, including what the
// resolver currently grants them.
type Profile struct {
	*User
	Roles         []string `json:"roles"`
	Permissions   []string `json:"permissions"`
	DepartmentIDs []int64  `json:"department_ids"`
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:        u.ID,
		UUID:      u.UUID,
		Email:     u.Email,
		Name:      u.Name,
		Deleted:   u.Deleted,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
