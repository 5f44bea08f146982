package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/accesshub/accesshub/internal/platform/httpx"
)

const maxNameLength = 100

// Service coordinates role and permission mutations, enforcing the
// uniqueness, existence and referential-integrity invariants before
// anything is committed.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validateName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s name required", httpx.ErrValidation, kind)
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("%w: %s name exceeds %d characters", httpx.ErrValidation, kind, maxNameLength)
	}
	return name, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ListRoles returns all roles with their permission sets.
func (s *Service) ListRoles(ctx context.Context) ([]RoleWithPermissions, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleWithPermissions, 0, len(roles))
	for _, role := range roles {
		perms, err := s.repo.GetRolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RoleWithPermissions{Role: role, Permissions: perms})
	}
	return out, nil
}

// GetRole fetches a single role with its permission set.
func (s *Service) GetRole(ctx context.Context, id int64) (*RoleWithPermissions, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.repo.GetRolePermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RoleWithPermissions{Role: *role, Permissions: perms}, nil
}

// CreateRole inserts a new role with a unique name.
func (s *Service) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	name, err := validateName("role", name)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole renames or re-describes an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (*Role, error) {
	name, err := validateName("role", name)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role. Its role-permission and user-role rows are
// removed with it.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// CreatePermission inserts a new permission with a unique name.
func (s *Service) CreatePermission(ctx context.Context, name, description string) (*Permission, error) {
	name, err := validateName("permission", name)
	if err != nil {
		return nil, err
	}
	return s.repo.CreatePermission(ctx, name, strings.TrimSpace(description))
}

// UpdatePermission renames or re-describes an existing permission.
func (s *Service) UpdatePermission(ctx context.Context, id int64, name, description string) (*Permission, error) {
	name, err := validateName("permission", name)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdatePermission(ctx, id, name, strings.TrimSpace(description))
}

// DeletePermission removes a permission and, via cascade, every grant
// referencing it.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	return s.repo.DeletePermission(ctx, id)
}

// GetRolePermissions returns the permissions granted to a role.
func (s *Service) GetRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.GetRolePermissions(ctx, roleID)
}

// GetUserRoles returns the roles assigned to a user.
func (s *Service) GetUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return s.repo.GetUserRoles(ctx, userID)
}

// SetRolePermissions replaces the role's grant set with exactly
// permissionIDs in one transaction. If the role is missing it fails with
// ErrNotFound; if any id does not resolve it fails with ReferenceError and
// nothing is applied.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) (*RoleWithPermissions, error) {
	ids := dedupe(permissionIDs)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetRole(ctx, roleID); err != nil {
			return err
		}
		missing, err := tx.MissingPermissionIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return &ReferenceError{Entity: "permission", MissingIDs: missing}
		}
		return tx.ReplaceRolePermissions(ctx, roleID, ids)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRole(ctx, roleID)
}

// SetUserRoles replaces the user's role memberships with exactly roleIDs
// in one transaction, with the same atomic validation as
// SetRolePermissions.
func (s *Service) SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) ([]Role, error) {
	ids := dedupe(roleIDs)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		missing, err := tx.MissingRoleIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return &ReferenceError{Entity: "role", MissingIDs: missing}
		}
		return tx.ReplaceUserRoles(ctx, userID, ids)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetUserRoles(ctx, userID)
}

// GrantPermissionByName adds a single grant identified by names. Granting
// an existing pair succeeds without change.
func (s *Service) GrantPermissionByName(ctx context.Context, roleName, permissionName string) (*Role, *Permission, error) {
	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return nil, nil, fmt.Errorf("role %q: %w", roleName, err)
	}
	perm, err := s.repo.GetPermissionByName(ctx, permissionName)
	if err != nil {
		return nil, nil, fmt.Errorf("permission %q: %w", permissionName, err)
	}
	if err := s.repo.GrantPermission(ctx, role.ID, perm.ID); err != nil {
		return nil, nil, err
	}
	return role, perm, nil
}

// RevokePermissionByName removes a single grant identified by names.
func (s *Service) RevokePermissionByName(ctx context.Context, roleName, permissionName string) (*Role, *Permission, error) {
	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return nil, nil, fmt.Errorf("role %q: %w", roleName, err)
	}
	perm, err := s.repo.GetPermissionByName(ctx, permissionName)
	if err != nil {
		return nil, nil, fmt.Errorf("permission %q: %w", permissionName, err)
	}
	if err := s.repo.RevokePermission(ctx, role.ID, perm.ID); err != nil {
		return nil, nil, err
	}
	return role, perm, nil
}
