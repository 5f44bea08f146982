package command

import (
	"context"
	"fmt"

	"github.com/accesshub/accesshub/internal/rbac"
)

// Result describes what an executed command did.
type Result struct {
	Action     string           `json:"action"`
	Role       *rbac.Role       `json:"role,omitempty"`
	Permission *rbac.Permission `json:"permission,omitempty"`
}

// Coordinator is the slice of the rbac service the executor needs.
type Coordinator interface {
	GrantPermissionByName(ctx context.Context, roleName, permissionName string) (*rbac.Role, *rbac.Permission, error)
	RevokePermissionByName(ctx context.Context, roleName, permissionName string) (*rbac.Role, *rbac.Permission, error)
	CreatePermission(ctx context.Context, name, description string) (*rbac.Permission, error)
	CreateRole(ctx context.Context, name, description string) (*rbac.Role, error)
}

// Executor maps parsed intents onto the rbac mutation coordinator.
type Executor struct {
	rbac Coordinator
}

// NewExecutor builds an Executor instance.
func NewExecutor(coordinator Coordinator) *Executor {
	return &Executor{rbac: coordinator}
}

// Execute runs a single intent. Errors carry the rbac taxonomy (NotFound,
// Conflict, Validation) untouched.
func (e *Executor) Execute(ctx context.Context, intent Intent) (*Result, error) {
	switch v := intent.(type) {
	case AssignPermission:
		role, perm, err := e.rbac.GrantPermissionByName(ctx, v.RoleName, v.PermissionName)
		if err != nil {
			return nil, err
		}
		return &Result{Action: "assigned_permission", Role: role, Permission: perm}, nil
	case CreatePermission:
		perm, err := e.rbac.CreatePermission(ctx, v.PermissionName, "")
		if err != nil {
			return nil, err
		}
		return &Result{Action: "created_permission", Permission: perm}, nil
	case CreateRole:
		role, err := e.rbac.CreateRole(ctx, v.RoleName, "")
		if err != nil {
			return nil, err
		}
		return &Result{Action: "created_role", Role: role}, nil
	case RemovePermission:
		role, perm, err := e.rbac.RevokePermissionByName(ctx, v.RoleName, v.PermissionName)
		if err != nil {
			return nil, err
		}
		return &Result{Action: "removed_permission", Role: role, Permission: perm}, nil
	default:
		return nil, fmt.Errorf("command: unknown intent %T", intent)
	}
}
