package crawl

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyFrontier is returned by ClaimNext when a domain has no unvisited
// entries left.
var ErrEmptyFrontier = errors.New("frontier is empty")

// Frontier is the per-domain FIFO queue of discovered URLs plus the
// seen-set that deduplicates them.
type Frontier interface {
	// ClaimNext atomically selects the oldest unvisited entry for hostname,
	// marks it visited and returns it. Returns ErrEmptyFrontier when the
	// domain's queue is drained. The claim must be a single atomic
	// read-and-mark so it stays correct under restart or retries.
	ClaimNext(ctx context.Context, hostname string) (FrontierEntry, error)

	// EnqueueIfNew inserts url for hostname unless it has been seen before.
	// First insertion wins: the depth of the first call is retained.
	// The returned bool reports whether a new entry was created.
	EnqueueIfNew(ctx context.Context, hostname, url string, depth int) (bool, error)
}

// DomainRegistry tracks every known domain's crawl status and activity.
type DomainRegistry interface {
	// SelectBatch returns up to limit non-complete domains, least recently
	// active first.
	SelectBatch(ctx context.Context, limit int) ([]Domain, error)

	// RegisterIfNew upserts hostname as pending with a zero activity
	// timestamp. It never downgrades an existing status.
	RegisterIfNew(ctx context.Context, hostname string) error

	// MarkComplete flips hostname to complete. Complete domains are not
	// re-selected even if their frontier is later re-seeded.
	MarkComplete(ctx context.Context, hostname string) error

	// TouchActivity records the given time as hostname's last activity.
	TouchActivity(ctx context.Context, hostname string, at time.Time) error

	// CountByStatus returns registry counts keyed by status.
	CountByStatus(ctx context.Context) (map[DomainStatus]int64, error)
}

// SiteIndex persists extracted documents and serves full-text candidates.
// It is written by crawl workers and read by the ranking engine.
type SiteIndex interface {
	// UpsertDocument overwrites a document's content fields. Backlink
	// counters initialize to zero on first insert and are never reset on
	// update.
	UpsertDocument(ctx context.Context, doc SiteDocument) error

	// IncrementBacklink adds one to a counter, creating the row first if
	// the URL has never been crawled. Callers treat this as best-effort.
	IncrementBacklink(ctx context.Context, url string, kind BacklinkKind) error

	// SearchCandidates returns every document matching query across the
	// weighted text fields, with TextScore populated.
	SearchCandidates(ctx context.Context, query string) ([]SiteDocument, error)

	// CountMatches counts text-matching documents independently of any
	// scoring or pagination.
	CountMatches(ctx context.Context, query string) (int, error)

	// CountDocuments reports the total indexed page count.
	CountDocuments(ctx context.Context) (int64, error)
}

// Fetcher performs a single bounded HTTP GET.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// Extractor turns a fetched HTML document into structured fields and
// partitioned outbound links.
type Extractor interface {
	Extract(pageURL, contentType string, body []byte) (PageExtract, error)
}

// Publisher pushes indexed-page events to Pub/Sub (or similar).
// Publishing is best-effort; failures never abort page processing.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore archives raw page bodies and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Hasher computes digests for archive paths.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Limiter throttles fetches per hostname.
type Limiter interface {
	Wait(ctx context.Context, hostname string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Sleeper pauses the scheduler loop; injectable so tests stay deterministic.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}
