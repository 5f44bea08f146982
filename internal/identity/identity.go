// Package identity resolves an authenticated subject into its full
// role/permission graph and derives the effective permission set.
package identity

import (
	"sort"
	"time"
)

// Permission is an atomic named capability granted through a role.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Role is a named bundle of permissions.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

// Identity is a subject together with its current role memberships.
type Identity struct {
	UserID    int64     `json:"id"`
	Email     string    `json:"email"`
	Roles     []Role    `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// PermissionSet is a deduplicated set of permission names.
type PermissionSet map[string]struct{}

// EffectivePermissions flattens the identity's roles into the union of
// their permission names. An identity with no roles yields an empty set.
func (id *Identity) EffectivePermissions() PermissionSet {
	set := make(PermissionSet)
	for _, role := range id.Roles {
		for _, perm := range role.Permissions {
			set[perm.Name] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains name. Comparison is exact;
// permission names are case-sensitive.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the permission names in sorted order.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
