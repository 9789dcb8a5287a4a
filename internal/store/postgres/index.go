package postgres

import (
	"context"
	"fmt"

	"github.com/webdex/webdex/internal/crawl"
)

// The tsvector weights A..D map to the field relevance weights
// title 10, heading 5, description 2, content 1; ts_rank takes its weight
// array as {D, C, B, A} so the stored factors are scaled by ten at query
// time.
const indexSchema = `
CREATE TABLE IF NOT EXISTS %s (
	url                TEXT PRIMARY KEY,
	depth              INT NOT NULL DEFAULT 0,
	title              TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	heading            TEXT NOT NULL DEFAULT '',
	content            TEXT NOT NULL DEFAULT '',
	favicon_url        TEXT NOT NULL DEFAULT '',
	internal_backlinks BIGINT NOT NULL DEFAULT 0,
	external_backlinks BIGINT NOT NULL DEFAULT 0,
	tsv TSVECTOR GENERATED ALWAYS AS (
		setweight(to_tsvector('english', coalesce(title, '')), 'A') ||
		setweight(to_tsvector('english', coalesce(heading, '')), 'B') ||
		setweight(to_tsvector('english', coalesce(description, '')), 'C') ||
		setweight(to_tsvector('english', coalesce(content, '')), 'D')
	) STORED
);
CREATE INDEX IF NOT EXISTS %s_tsv_idx ON %s USING GIN (tsv);`

const rankWeights = `'{0.1, 0.2, 0.5, 1.0}'`

// Index is a Postgres-backed site index using weighted tsvector search.
type Index struct {
	pool  Pool
	table string
}

// NewIndex constructs an Index over an existing pool.
func NewIndex(pool Pool, table string) (*Index, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := checkTable(table, "sites")
	if err != nil {
		return nil, err
	}
	return &Index{pool: pool, table: table}, nil
}

// EnsureSchema creates the sites table when it does not exist.
func (ix *Index) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(indexSchema, ix.table, ix.table, ix.table)
	if _, err := ix.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure index schema: %w", err)
	}
	return nil
}

// UpsertDocument overwrites content fields; the conflict branch leaves the
// backlink counters untouched.
func (ix *Index) UpsertDocument(ctx context.Context, doc crawl.SiteDocument) error {
	query := fmt.Sprintf(`
INSERT INTO %s (url, depth, title, description, heading, content, favicon_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (url) DO UPDATE SET
	depth = EXCLUDED.depth,
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	heading = EXCLUDED.heading,
	content = EXCLUDED.content,
	favicon_url = EXCLUDED.favicon_url`, ix.table)

	_, err := ix.pool.Exec(ctx, query,
		doc.URL, doc.Depth, doc.Title, doc.Description, doc.Heading, doc.Content, doc.FaviconURL)
	if err != nil {
		return fmt.Errorf("upsert site document: %w", err)
	}
	return nil
}

// IncrementBacklink bumps one counter with an upsert, so the row may exist
// before the page itself is ever crawled.
func (ix *Index) IncrementBacklink(ctx context.Context, url string, kind crawl.BacklinkKind) error {
	column := "internal_backlinks"
	if kind == crawl.BacklinkExternal {
		column = "external_backlinks"
	}
	query := fmt.Sprintf(`
INSERT INTO %s (url, %s) VALUES ($1, 1)
ON CONFLICT (url) DO UPDATE SET %s = %s.%s + 1`, ix.table, column, column, ix.table, column)

	if _, err := ix.pool.Exec(ctx, query, url); err != nil {
		return fmt.Errorf("increment %s backlink: %w", kind, err)
	}
	return nil
}

// SearchCandidates returns every text-matching document with TextScore set
// to the weighted rank.
func (ix *Index) SearchCandidates(ctx context.Context, query string) ([]crawl.SiteDocument, error) {
	sql := fmt.Sprintf(`
SELECT url, depth, title, description, heading, content, favicon_url,
	internal_backlinks, external_backlinks,
	ts_rank(%s, tsv, q) * 10 AS score
FROM %s, plainto_tsquery('english', $1) AS q
WHERE tsv @@ q`, rankWeights, ix.table)

	rows, err := ix.pool.Query(ctx, sql, query)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	defer rows.Close()

	var out []crawl.SiteDocument
	for rows.Next() {
		var d crawl.SiteDocument
		if err := rows.Scan(
			&d.URL, &d.Depth, &d.Title, &d.Description, &d.Heading, &d.Content,
			&d.FaviconURL, &d.InternalBacklinks, &d.ExternalBacklinks, &d.TextScore,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// CountMatches counts text-matching documents independently of scoring.
func (ix *Index) CountMatches(ctx context.Context, query string) (int, error) {
	sql := fmt.Sprintf(`
SELECT count(*) FROM %s, plainto_tsquery('english', $1) AS q
WHERE tsv @@ q`, ix.table)

	var n int
	if err := ix.pool.QueryRow(ctx, sql, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return n, nil
}

// CountDocuments reports the total indexed row count.
func (ix *Index) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	if err := ix.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, ix.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}
