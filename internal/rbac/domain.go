package rbac

import "time"

// Role is a named, reusable bundle of permissions.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Permission is an atomic named capability.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoleWithPermissions is a role together with its granted permission set.
type RoleWithPermissions struct {
	Role
	Permissions []Permission `json:"permissions"`
}
