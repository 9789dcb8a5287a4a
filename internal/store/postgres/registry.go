package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/webdex/webdex/internal/crawl"
)

const registrySchema = `
CREATE TABLE IF NOT EXISTS %s (
	hostname      TEXT PRIMARY KEY,
	status        TEXT NOT NULL DEFAULT 'pending',
	last_activity TIMESTAMPTZ NOT NULL DEFAULT to_timestamp(0)
);`

// Registry is a Postgres-backed domain registry.
type Registry struct {
	pool  Pool
	table string
}

// NewRegistry constructs a Registry over an existing pool.
func NewRegistry(pool Pool, table string) (*Registry, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := checkTable(table, "domains")
	if err != nil {
		return nil, err
	}
	return &Registry{pool: pool, table: table}, nil
}

// EnsureSchema creates the domains table when it does not exist.
func (r *Registry) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, fmt.Sprintf(registrySchema, r.table)); err != nil {
		return fmt.Errorf("ensure registry schema: %w", err)
	}
	return nil
}

// SelectBatch returns up to limit non-complete domains, least recently
// active first.
func (r *Registry) SelectBatch(ctx context.Context, limit int) ([]crawl.Domain, error) {
	query := fmt.Sprintf(`
SELECT hostname, status, last_activity FROM %s
WHERE status <> 'complete'
ORDER BY last_activity ASC
LIMIT $1`, r.table)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select domain batch: %w", err)
	}
	defer rows.Close()

	var out []crawl.Domain
	for rows.Next() {
		var d crawl.Domain
		if err := rows.Scan(&d.Hostname, &d.Status, &d.LastActivity); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return out, nil
}

// RegisterIfNew inserts hostname as pending with a zero activity timestamp;
// existing rows keep their status.
func (r *Registry) RegisterIfNew(ctx context.Context, hostname string) error {
	query := fmt.Sprintf(`
INSERT INTO %s (hostname, status, last_activity) VALUES ($1, 'pending', to_timestamp(0))
ON CONFLICT (hostname) DO NOTHING`, r.table)

	if _, err := r.pool.Exec(ctx, query, hostname); err != nil {
		return fmt.Errorf("register domain: %w", err)
	}
	return nil
}

// MarkComplete flips hostname to complete.
func (r *Registry) MarkComplete(ctx context.Context, hostname string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = 'complete' WHERE hostname = $1`, r.table)
	if _, err := r.pool.Exec(ctx, query, hostname); err != nil {
		return fmt.Errorf("mark domain complete: %w", err)
	}
	return nil
}

// TouchActivity records at as hostname's last activity.
func (r *Registry) TouchActivity(ctx context.Context, hostname string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET last_activity = $2 WHERE hostname = $1`, r.table)
	if _, err := r.pool.Exec(ctx, query, hostname, at); err != nil {
		return fmt.Errorf("touch domain activity: %w", err)
	}
	return nil
}

// CountByStatus returns registry counts keyed by status.
func (r *Registry) CountByStatus(ctx context.Context) (map[crawl.DomainStatus]int64, error) {
	query := fmt.Sprintf(`SELECT status, count(*) FROM %s GROUP BY status`, r.table)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count domains: %w", err)
	}
	defer rows.Close()

	counts := make(map[crawl.DomainStatus]int64)
	for rows.Next() {
		var (
			status crawl.DomainStatus
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan domain count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domain counts: %w", err)
	}
	return counts, nil
}
