package permit

import (
	"strings"
	"time"

	"github.com/frahmantamala/permit-management/internal"
	"github.com/frahmantamala/permit-management/internal/core/common/validation"
)

// CreatePermitDTO represents the request payload for requesting a permit.
// Dates accept RFC 3339 or YYYY-MM-DD.
type CreatePermitDTO struct {
	FullName      string  `json:"full_name"`
	EmployeeID    string  `json:"employee_id"`
	DepartmentID  int64   `json:"department_id"`
	Type          string  `json:"type"`
	Justification *string `json:"justification,omitempty"`
	ValidFrom     string  `json:"valid_from"`
	ValidUntil    string  `json:"valid_until"`
}

// Validate checks the payload shape and returns the parsed validity window.
func (dto CreatePermitDTO) Validate(maxValidity time.Duration) (time.Time, time.Time, error) {
	v := validation.NewValidator()
	v.Field("full_name", dto.FullName).Required().MaxLength(255)
	v.Field("employee_id", dto.EmployeeID).Required().MaxLength(64)
	v.Field("department_id", dto.DepartmentID).Required().Positive()
	v.Field("type", dto.Type).Required().OneOf(Types, internal.ErrCodeInvalidPermitType)
	v.Field("justification", dto.Justification).MaxLength(1000)
	v.Field("valid_from", dto.ValidFrom).Required()
	v.Field("valid_until", dto.ValidUntil).Required()
	if appErr := v.Validate(); appErr != nil {
		return time.Time{}, time.Time{}, appErr
	}

	from, appErr := validation.ParseDate("valid_from", dto.ValidFrom)
	if appErr != nil {
		return time.Time{}, time.Time{}, appErr
	}
	until, appErr := validation.ParseDate("valid_until", dto.ValidUntil)
	if appErr != nil {
		return time.Time{}, time.Time{}, appErr
	}
	if appErr := validation.ValidateWindow(from, until, maxValidity); appErr != nil {
		return time.Time{}, time.Time{}, appErr
	}
	return from, until, nil
}

// DecisionDTO carries an approval or rejection. Approved is required; a
// rejection must say why.
type DecisionDTO struct {
	Approved *bool   `json:"approved"`
	Reason   *string `json:"reason,omitempty"`
}

func (dto DecisionDTO) Validate() error {
	if dto.Approved == nil {
		return internal.ErrDecisionRequired
	}
	if !*dto.Approved && (dto.Reason == nil || strings.TrimSpace(*dto.Reason) == "") {
		return internal.ErrReasonRequired
	}
	if dto.Reason != nil && len(*dto.Reason) > 1000 {
		return internal.NewValidationFieldError("reason", "reason must not exceed 1000 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

// ListQuery is the caller-facing listing request. Whose permits are listed
// is decided by the service, not the caller.
type ListQuery struct {
	DepartmentID   *int64
	Status         string
	Type           string
	From           *time.Time
	Until          *time.Time
	IncludeDeleted bool
	Mine           bool
	Limit          int
	Offset         int
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (q ListQuery) Validate() error {
	v := validation.NewValidator()
	if q.Status != "" {
		v.Field("status", q.Status).OneOf(Statuses, internal.ErrCodeValidationFailed)
	}
	if q.Type != "" {
		v.Field("type", q.Type).OneOf(Types, internal.ErrCodeInvalidPermitType)
	}
	if q.DepartmentID != nil {
		v.Field("department_id", *q.DepartmentID).Positive()
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	if q.From != nil && q.Until != nil && q.Until.Before(*q.From) {
		return internal.NewValidationFieldError("until", "until must not precede from", internal.ErrCodeInvalidWindow)
	}
	return nil
}

func (q ListQuery) page() (int, int) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
