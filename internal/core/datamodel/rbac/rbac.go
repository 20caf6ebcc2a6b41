package rbac

import "time"

type Role struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;not null;index"`
	Deleted   bool      `gorm:"column:deleted;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Role) TableName() string {
	return "roles"
}

// Permission names follow the resource:action convention, e.g. permit:approve.
type Permission struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;not null;index"`
	Deleted   bool      `gorm:"column:deleted;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Permission) TableName() string {
	return "permissions"
}

// A pair may be linked once while live; soft-deleted links keep their rows.
type RolePermission struct {
	ID           int64     `gorm:"primaryKey"`
	RoleID       int64     `gorm:"column:role_id;not null;index;uniqueIndex:idx_role_permissions_live,where:deleted = false"`
	PermissionID int64     `gorm:"column:permission_id;not null;index;uniqueIndex:idx_role_permissions_live,where:deleted = false"`
	Deleted      bool      `gorm:"column:deleted;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

type UserRole struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null;index;uniqueIndex:idx_user_roles_live,where:deleted = false"`
	RoleID    int64     `gorm:"column:role_id;not null;index;uniqueIndex:idx_user_roles_live,where:deleted = false"`
	Deleted   bool      `gorm:"column:deleted;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

type UserPermission struct {
	ID           int64     `gorm:"primaryKey"`
	UserID       int64     `gorm:"column:user_id;not null;index;uniqueIndex:idx_user_permissions_live,where:deleted = false"`
	PermissionID int64     `gorm:"column:permission_id;not null;index;uniqueIndex:idx_user_permissions_live,where:deleted = false"`
	GrantedBy    *int64    `gorm:"column:granted_by"`
	Deleted      bool      `gorm:"column:deleted;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}
