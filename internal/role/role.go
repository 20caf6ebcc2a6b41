package role

import "time"

// Role is a role together with the permissions it currently carries.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

type AssignRoleDTO struct {
	Role string `json:"role"`
}

type GrantPermissionDTO struct {
	Permission string `json:"permission"`
}

type RolesResponse struct {
	Roles []*Role `json:"roles"`
}
