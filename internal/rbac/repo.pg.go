package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accesshub/accesshub/internal/platform/db"
)

// PGRepository implements Repository using PostgreSQL. Uniqueness and
// referential integrity come from the schema constraints; this layer only
// translates their violations into the rbac error taxonomy.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// WithTx runs fn inside a single transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{q: tx})
	})
}

const entityColumns = `id, name, description, created_at, updated_at`

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func scanPermission(row pgx.Row) (*Permission, error) {
	var perm Permission
	if err := row.Scan(&perm.ID, &perm.Name, &perm.Description, &perm.CreatedAt, &perm.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &perm, nil
}

func mapConflict(err error, entity, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &ConflictError{Entity: entity, Name: name}
	}
	return err
}

// ListRoles returns all roles ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	return collectRoles(ctx, r.pool, `SELECT `+entityColumns+` FROM roles ORDER BY name`)
}

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (*Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+entityColumns+` FROM roles WHERE id = $1`, id))
}

// GetRoleByName fetches a role by its unique name.
func (r *PGRepository) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+entityColumns+` FROM roles WHERE name = $1`, name))
}

// CreateRole inserts a new role.
func (r *PGRepository) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING `+entityColumns, name, description))
	if err != nil {
		return nil, mapConflict(err, "role", name)
	}
	return role, nil
}

// UpdateRole updates name and description of an existing role.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, name, description string) (*Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx,
		`UPDATE roles SET name = $2, description = $3, updated_at = now() WHERE id = $1 RETURNING `+entityColumns,
		id, name, description))
	if err != nil {
		return nil, mapConflict(err, "role", name)
	}
	return role, nil
}

// DeleteRole removes a role; association rows go with it via cascade.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPermissions returns all permissions ordered by name.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	return collectPermissions(ctx, r.pool, `SELECT `+entityColumns+` FROM permissions ORDER BY name`)
}

// GetPermission fetches a permission by ID.
func (r *PGRepository) GetPermission(ctx context.Context, id int64) (*Permission, error) {
	return scanPermission(r.pool.QueryRow(ctx, `SELECT `+entityColumns+` FROM permissions WHERE id = $1`, id))
}

// GetPermissionByName fetches a permission by its unique name.
func (r *PGRepository) GetPermissionByName(ctx context.Context, name string) (*Permission, error) {
	return scanPermission(r.pool.QueryRow(ctx, `SELECT `+entityColumns+` FROM permissions WHERE name = $1`, name))
}

// CreatePermission inserts a new permission.
func (r *PGRepository) CreatePermission(ctx context.Context, name, description string) (*Permission, error) {
	perm, err := scanPermission(r.pool.QueryRow(ctx,
		`INSERT INTO permissions (name, description) VALUES ($1, $2) RETURNING `+entityColumns, name, description))
	if err != nil {
		return nil, mapConflict(err, "permission", name)
	}
	return perm, nil
}

// UpdatePermission updates name and description of an existing permission.
func (r *PGRepository) UpdatePermission(ctx context.Context, id int64, name, description string) (*Permission, error) {
	perm, err := scanPermission(r.pool.QueryRow(ctx,
		`UPDATE permissions SET name = $2, description = $3, updated_at = now() WHERE id = $1 RETURNING `+entityColumns,
		id, name, description))
	if err != nil {
		return nil, mapConflict(err, "permission", name)
	}
	return perm, nil
}

// DeletePermission removes a permission; grants referencing it cascade.
func (r *PGRepository) DeletePermission(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRolePermissions returns the permissions granted to a role.
func (r *PGRepository) GetRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return collectPermissions(ctx, r.pool,
		`SELECT p.id, p.name, p.description, p.created_at, p.updated_at
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1
		 ORDER BY p.name`, roleID)
}

// GetUserRoles returns the roles assigned to a user.
func (r *PGRepository) GetUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	return collectRoles(ctx, r.pool,
		`SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		 FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1
		 ORDER BY r.name`, userID)
}

// UserExists reports whether the user row exists.
func (r *PGRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	return userExists(ctx, r.pool, userID)
}

// GrantPermission adds a single (role, permission) grant. Granting an
// already-granted pair is a no-op.
func (r *PGRepository) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, permissionID)
	return err
}

// RevokePermission removes a single (role, permission) grant.
func (r *PGRepository) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	return err
}

var _ Repository = (*PGRepository)(nil)

// pgTxRepository exposes the transactional slice over a pgx.Tx.
type pgTxRepository struct {
	q querier
}

func (t *pgTxRepository) GetRole(ctx context.Context, id int64) (*Role, error) {
	return scanRole(t.q.QueryRow(ctx, `SELECT `+entityColumns+` FROM roles WHERE id = $1`, id))
}

func (t *pgTxRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	return userExists(ctx, t.q, userID)
}

func (t *pgTxRepository) MissingPermissionIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return missingIDs(ctx, t.q, `permissions`, ids)
}

func (t *pgTxRepository) MissingRoleIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return missingIDs(ctx, t.q, `roles`, ids)
}

func (t *pgTxRepository) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	if len(permissionIDs) == 0 {
		return nil
	}
	_, err := t.q.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) SELECT $1, unnest($2::bigint[])`,
		roleID, permissionIDs)
	return err
}

func (t *pgTxRepository) ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}
	_, err := t.q.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) SELECT $1, unnest($2::bigint[])`,
		userID, roleIDs)
	return err
}

var _ TxRepository = (*pgTxRepository)(nil)

func collectRoles(ctx context.Context, q querier, sql string, args ...any) ([]Role, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := []Role{}
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func collectPermissions(ctx context.Context, q querier, sql string, args ...any) ([]Permission, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	perms := []Permission{}
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Name, &perm.Description, &perm.CreatedAt, &perm.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

func userExists(ctx context.Context, q querier, userID int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

func missingIDs(ctx context.Context, q querier, table string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx,
		`SELECT wanted.id FROM unnest($1::bigint[]) AS wanted(id)
		 WHERE NOT EXISTS (SELECT 1 FROM `+table+` t WHERE t.id = wanted.id)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var missing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}
