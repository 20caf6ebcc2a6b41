package permit

import "time"

type Permit struct {
	ID               int64     `gorm:"primaryKey"`
	FullName         string    `gorm:"column:full_name;not null"`
	EmployeeID       string    `gorm:"column:employee_id;not null"`
	DepartmentID     int64     `gorm:"column:department_id;not null;index"`
	Type             string    `gorm:"column:type;not null"`
	Approved         *bool     `gorm:"column:approved"`
	Justification    *string   `gorm:"column:justification"`
	Reason           *string   `gorm:"column:reason"`
	ValidFrom        time.Time `gorm:"column:valid_from;not null"`
	ValidUntil       time.Time `gorm:"column:valid_until;not null"`
	RequestedBy      int64     `gorm:"column:requested_by;not null;index"`
	DecidedBy        *int64    `gorm:"column:decided_by"`
	VerificationCode string    `gorm:"column:verification_code;uniqueIndex;not null"`
	Deleted          bool      `gorm:"column:deleted;not null;default:false"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Permit) TableName() string {
	return "permits"
}
