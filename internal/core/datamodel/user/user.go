package user

import "time"

type User struct {
	ID           int64     `gorm:"primaryKey"`
	UUID         string    `gorm:"column:uuid;uniqueIndex;not null"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	Name         *string   `gorm:"column:name"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	RefreshToken *string   `gorm:"column:refresh_token"`
	Deleted      bool      `gorm:"column:deleted;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// UserDepartment records department membership.
type UserDepartment struct {
	ID           int64     `gorm:"primaryKey"`
	UserID       int64     `gorm:"column:user_id;not null;index"`
	DepartmentID int64     `gorm:"column:department_id;not null;index"`
	Deleted      bool      `gorm:"column:deleted;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (UserDepartment) TableName() string {
	return "user_departments"
}
