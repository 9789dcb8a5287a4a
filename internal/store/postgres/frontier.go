package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/webdex/webdex/internal/crawl"
)

const frontierSchema = `
CREATE TABLE IF NOT EXISTS %s (
	id         BIGSERIAL PRIMARY KEY,
	hostname   TEXT NOT NULL,
	url        TEXT NOT NULL,
	depth      INT NOT NULL DEFAULT 0,
	visited    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (hostname, url)
);
CREATE INDEX IF NOT EXISTS %s_claim_idx ON %s (hostname, id) WHERE NOT visited;`

// Frontier is a Postgres-backed per-domain queue with a unique-constraint
// seen-set.
type Frontier struct {
	pool  Pool
	table string
}

// NewFrontier constructs a Frontier over an existing pool.
func NewFrontier(pool Pool, table string) (*Frontier, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := checkTable(table, "frontier")
	if err != nil {
		return nil, err
	}
	return &Frontier{pool: pool, table: table}, nil
}

// EnsureSchema creates the frontier table when it does not exist.
func (f *Frontier) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(frontierSchema, f.table, f.table, f.table)
	if _, err := f.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure frontier schema: %w", err)
	}
	return nil
}

// ClaimNext marks and returns the oldest unvisited entry for hostname in a
// single statement. SKIP LOCKED keeps concurrent claimants from blocking on
// the same row.
func (f *Frontier) ClaimNext(ctx context.Context, hostname string) (crawl.FrontierEntry, error) {
	query := fmt.Sprintf(`
UPDATE %s SET visited = TRUE
WHERE id = (
	SELECT id FROM %s
	WHERE hostname = $1 AND NOT visited
	ORDER BY id
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING hostname, url, depth`, f.table, f.table)

	var entry crawl.FrontierEntry
	err := f.pool.QueryRow(ctx, query, hostname).Scan(&entry.Hostname, &entry.URL, &entry.Depth)
	if errors.Is(err, pgx.ErrNoRows) {
		return crawl.FrontierEntry{}, crawl.ErrEmptyFrontier
	}
	if err != nil {
		return crawl.FrontierEntry{}, fmt.Errorf("claim frontier entry: %w", err)
	}
	entry.Visited = true
	return entry, nil
}

// EnqueueIfNew inserts url for hostname; the unique constraint makes
// duplicate calls a no-op and first-seen depth wins.
func (f *Frontier) EnqueueIfNew(ctx context.Context, hostname, url string, depth int) (bool, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (hostname, url, depth) VALUES ($1, $2, $3)
ON CONFLICT (hostname, url) DO NOTHING`, f.table)

	tag, err := f.pool.Exec(ctx, query, hostname, url, depth)
	if err != nil {
		return false, fmt.Errorf("enqueue frontier entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
