package user

import (
	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/core/common/validation"
)

// UpdateUserDTO represents the editable profile fields
type UpdateUserDTO struct {
	Name *string `json:"name"`
}

func (dto UpdateUserDTO) Validate() error {
	if dto.Name == nil {
		return internal.NewValidationError("nothing to update", internal.ErrCodeValidationFailed)
	}
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(255)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type UsersResponse struct {
	Users  []*User `json:"users"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
