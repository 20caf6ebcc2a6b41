package department

import (
	"strings"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/core/common/validation"
)

type CreateDepartmentDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (dto CreateDepartmentDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(100)
	v.Field("description", dto.Description).MaxLength(500)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// UpdateDepartmentDTO changes only the fields that are present.
type UpdateDepartmentDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (dto UpdateDepartmentDTO) Validate() error {
	if dto.Name == nil && dto.Description == nil {
		return internal.NewValidationError("nothing to update", internal.ErrCodeValidationFailed)
	}
	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", dto.Name).Required().MaxLength(100)
	}
	v.Field("description", dto.Description).MaxLength(500)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type MemberDTO struct {
	UserID int64 `json:"user_id"`
}

func (dto MemberDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("user_id", dto.UserID).Required().Positive()
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type DepartmentsResponse struct {
	Departments []*Department `json:"departments"`
	Limit       int           `json:"limit"`
	Offset      int           `json:"offset"`
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
