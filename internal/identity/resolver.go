package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accesshub/accesshub/internal/platform/httpx"
)

// ErrSubjectNotFound indicates the subject behind a structurally valid
// credential no longer exists. Deleting the user is the only revocation
// mechanism in this design.
var ErrSubjectNotFound = fmt.Errorf("identity: subject not found: %w", httpx.ErrUnauthenticated)

// ResolverPort loads a subject's identity graph.
type ResolverPort interface {
	Resolve(ctx context.Context, subjectID int64) (*Identity, error)
}

// Resolver reads the user plus the transitive closure of roles and
// permissions from PostgreSQL in one logical read. No caching: every
// authorization decision sees the current graph.
type Resolver struct {
	pool *pgxpool.Pool
}

// NewResolver constructs a Resolver backed by the provided pool.
func NewResolver(pool *pgxpool.Pool) *Resolver {
	return &Resolver{pool: pool}
}

const resolveQuery = `
SELECT u.id, u.email, u.created_at,
       r.id, r.name, r.description,
       p.id, p.name, p.description
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
LEFT JOIN role_permissions rp ON rp.role_id = r.id
LEFT JOIN permissions p ON p.id = rp.permission_id
WHERE u.id = $1
ORDER BY r.id, p.id`

// Resolve fetches the identity for subjectID, returning ErrSubjectNotFound
// when the user row is gone.
func (r *Resolver) Resolve(ctx context.Context, subjectID int64) (*Identity, error) {
	rows, err := r.pool.Query(ctx, resolveQuery, subjectID)
	if err != nil {
		return nil, fmt.Errorf("identity: resolve %d: %w", subjectID, err)
	}
	defer rows.Close()

	var ident *Identity
	roleIndex := make(map[int64]int)
	for rows.Next() {
		var (
			userID    int64
			email     string
			createdAt time.Time
			roleID    *int64
			roleName  *string
			roleDesc  *string
			permID    *int64
			permName  *string
			permDesc  *string
		)
		if err := rows.Scan(&userID, &email, &createdAt, &roleID, &roleName, &roleDesc, &permID, &permName, &permDesc); err != nil {
			return nil, fmt.Errorf("identity: scan: %w", err)
		}
		if ident == nil {
			ident = &Identity{UserID: userID, Email: email, Roles: []Role{}, CreatedAt: createdAt}
		}
		if roleID == nil {
			continue
		}
		idx, ok := roleIndex[*roleID]
		if !ok {
			ident.Roles = append(ident.Roles, Role{
				ID:          *roleID,
				Name:        deref(roleName),
				Description: deref(roleDesc),
				Permissions: []Permission{},
			})
			idx = len(ident.Roles) - 1
			roleIndex[*roleID] = idx
		}
		if permID != nil {
			ident.Roles[idx].Permissions = append(ident.Roles[idx].Permissions, Permission{
				ID:          *permID,
				Name:        deref(permName),
				Description: deref(permDesc),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("identity: rows: %w", err)
	}
	if ident == nil {
		return nil, ErrSubjectNotFound
	}
	return ident, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ ResolverPort = (*Resolver)(nil)
