package permit

import (
	"time"

	permitDatamodel "github.com/frahmantamala/permit-management/internal/core/datamodel/permit"
)

const (
	TypeRestricted = "restricted"
	TypeTemporary  = "temporary"
	TypePermanent  = "permanent"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var (
	Types    = []string{TypeRestricted, TypeTemporary, TypePermanent}
	Statuses = []string{StatusPending, StatusApproved, StatusRejected}
)

type Permit struct {
	ID               int64     `json:"id"`
	FullName         string    `json:"full_name"`
	EmployeeID       string    `json:"employee_id"`
	DepartmentID     int64     `json:"department_id"`
	Type             string    `json:"type"`
	Approved         *bool     `json:"approved"`
	Status           string    `json:"status"`
	Justification    *string   `json:"justification,omitempty"`
	Reason           *string   `json:"reason,omitempty"`
	ValidFrom        time.Time `json:"valid_from"`
	ValidUntil       time.Time `json:"valid_until"`
	RequestedBy      int64     `json:"requested_by"`
	DecidedBy        *int64    `json:"decided_by,omitempty"`
	VerificationCode string    `json:"verification_code"`
	Deleted          bool      `json:"deleted"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StatusOf names the tri-state decision: nil is pending.
func StatusOf(approved *bool) string {
	switch {
	case approved == nil:
		return StatusPending
	case *approved:
		return StatusApproved
	default:
		return StatusRejected
	}
}

func (p *Permit) IsPending() bool {
	return p.Approved == nil
}

func (p *Permit) OwnedBy(userID int64) bool {
	return p.RequestedBy == userID
}

// ValidAt reports whether the permit grants access at t: approved, not
// deleted, and t inside [ValidFrom, ValidUntil].
func (p *Permit) ValidAt(t time.Time) bool {
	if p.Deleted || p.Approved == nil || !*p.Approved {
		return false
	}
	return !t.Before(p.ValidFrom) && !t.After(p.ValidUntil)
}

func (p *Permit) ToDataModel() *permitDatamodel.Permit {
	return &permitDatamodel.Permit{
		ID:               p.ID,
		FullName:         p.FullName,
		EmployeeID:       p.EmployeeID,
		DepartmentID:     p.DepartmentID,
		Type:             p.Type,
		Approved:         p.Approved,
		Justification:    p.Justification,
		Reason:           p.Reason,
		ValidFrom:        p.ValidFrom,
		ValidUntil:       p.ValidUntil,
		RequestedBy:      p.RequestedBy,
		DecidedBy:        p.DecidedBy,
		VerificationCode: p.VerificationCode,
		Deleted:          p.Deleted,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func FromDataModel(m *permitDatamodel.Permit) *Permit {
	return &Permit{
		ID:               m.ID,
		FullName:         m.FullName,
		EmployeeID:       m.EmployeeID,
		DepartmentID:     m.DepartmentID,
		Type:             m.Type,
		Approved:         m.Approved,
		Status:           StatusOf(m.Approved),
		Justification:    m.Justification,
		Reason:           m.Reason,
		ValidFrom:        m.ValidFrom,
		ValidUntil:       m.ValidUntil,
		RequestedBy:      m.RequestedBy,
		DecidedBy:        m.DecidedBy,
		VerificationCode: m.VerificationCode,
		Deleted:          m.Deleted,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// Decision is the outcome recorded on a pending permit.
type Decision struct {
	Approved  bool
	Reason    *string
	DecidedBy int64
}

// ListFilter narrows a permit listing. Nil and zero fields do not filter.
type ListFilter struct {
	RequestedBy    *int64
	DepartmentID   *int64
	Status         string
	Type           string
	From           *time.Time
	Until          *time.Time
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Verification is what a checkpoint learns from scanning a permit code.
type Verification struct {
	Permit *Permit `json:"permit"`
	Valid  bool    `json:"valid"`
	Status string  `json:"status"`
	Detail string  `json:"detail,omitempty"`
}
