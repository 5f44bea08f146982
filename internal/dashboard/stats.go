package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Stats carries the entity counts surfaced on the admin dashboard.
type Stats struct {
	Users       int64 `json:"users"`
	Roles       int64 `json:"roles"`
	Permissions int64 `json:"permissions"`
	Grants      int64 `json:"grants"`
}

// RepositoryPort abstracts stats lookups for handler tests.
type RepositoryPort interface {
	Counts(ctx context.Context) (Stats, error)
}

// Repository reads counts from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const countsQuery = `
SELECT
  (SELECT COUNT(*) FROM users),
  (SELECT COUNT(*) FROM roles),
  (SELECT COUNT(*) FROM permissions),
  (SELECT COUNT(*) FROM role_permissions)
`

// Counts returns the current entity counts in a single round trip.
func (r *Repository) Counts(ctx context.Context) (Stats, error) {
	var stats Stats
	err := r.pool.QueryRow(ctx, countsQuery).Scan(&stats.Users, &stats.Roles, &stats.Permissions, &stats.Grants)
	if err != nil {
		return Stats{}, fmt.Errorf("count entities: %w", err)
	}
	return stats, nil
}
