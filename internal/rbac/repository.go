package rbac

import "context"

// Repository defines data access for the mutation coordinator.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	CreateRole(ctx context.Context, name, description string) (*Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (*Role, error)
	DeleteRole(ctx context.Context, id int64) error

	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id int64) (*Permission, error)
	GetPermissionByName(ctx context.Context, name string) (*Permission, error)
	CreatePermission(ctx context.Context, name, description string) (*Permission, error)
	UpdatePermission(ctx context.Context, id int64, name, description string) (*Permission, error)
	DeletePermission(ctx context.Context, id int64) error

	GetRolePermissions(ctx context.Context, roleID int64) ([]Permission, error)
	GetUserRoles(ctx context.Context, userID int64) ([]Role, error)
	UserExists(ctx context.Context, userID int64) (bool, error)

	GrantPermission(ctx context.Context, roleID, permissionID int64) error
	RevokePermission(ctx context.Context, roleID, permissionID int64) error
}

// TxRepository is the slice of Repository visible inside a transaction.
// Replace-all updates validate and write through it so no partially
// applied state is ever observable.
type TxRepository interface {
	GetRole(ctx context.Context, id int64) (*Role, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	MissingPermissionIDs(ctx context.Context, ids []int64) ([]int64, error)
	MissingRoleIDs(ctx context.Context, ids []int64) ([]int64, error)
	ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
}
