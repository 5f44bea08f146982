package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func perm(id int64, name string) Permission {
	return Permission{ID: id, Name: name}
}

func TestEffectivePermissionsUnionsRoles(t *testing.T) {
	ident := &Identity{
		UserID: 1,
		Roles: []Role{
			{ID: 1, Name: "Administrator", Permissions: []Permission{
				perm(1, "can_delete_users"),
				perm(2, "can_manage_roles"),
			}},
			{ID: 2, Name: "Content Editor", Permissions: []Permission{
				perm(2, "can_manage_roles"),
				perm(3, "can_edit_articles"),
			}},
		},
	}

	set := ident.EffectivePermissions()
	assert.Equal(t, []string{"can_delete_users", "can_edit_articles", "can_manage_roles"}, set.Names())
}

func TestEffectivePermissionsDeduplicates(t *testing.T) {
	ident := &Identity{
		Roles: []Role{
			{ID: 1, Permissions: []Permission{perm(1, "can_view_dashboard"), perm(1, "can_view_dashboard")}},
			{ID: 2, Permissions: []Permission{perm(1, "can_view_dashboard")}},
		},
	}

	set := ident.EffectivePermissions()
	assert.Len(t, set, 1)
	assert.True(t, set.Has("can_view_dashboard"))
}

func TestEffectivePermissionsOrderIndependent(t *testing.T) {
	a := &Identity{Roles: []Role{
		{ID: 1, Permissions: []Permission{perm(1, "x"), perm(2, "y")}},
		{ID: 2, Permissions: []Permission{perm(3, "z")}},
	}}
	b := &Identity{Roles: []Role{
		{ID: 2, Permissions: []Permission{perm(3, "z")}},
		{ID: 1, Permissions: []Permission{perm(2, "y"), perm(1, "x")}},
	}}

	assert.Equal(t, a.EffectivePermissions(), b.EffectivePermissions())
}

func TestEffectivePermissionsEmptyRoles(t *testing.T) {
	ident := &Identity{UserID: 7}

	set := ident.EffectivePermissions()
	assert.Empty(t, set)
	assert.False(t, set.Has("can_view_dashboard"))
}

func TestPermissionSetIsCaseSensitive(t *testing.T) {
	ident := &Identity{Roles: []Role{{ID: 1, Permissions: []Permission{perm(1, "Can_Edit")}}}}

	set := ident.EffectivePermissions()
	assert.True(t, set.Has("Can_Edit"))
	assert.False(t, set.Has("can_edit"))
}
