// Package crawl defines core types shared across subsystems.
package crawl

import "time"

// DomainStatus represents the lifecycle state of a tracked domain.
type DomainStatus string

// Domain status values persisted in the registry.
const (
	DomainStatusPending  DomainStatus = "pending"
	DomainStatusComplete DomainStatus = "complete"
)

// Domain is the registry record for one hostname.
type Domain struct {
	Hostname     string       `json:"hostname"`
	Status       DomainStatus `json:"status"`
	LastActivity time.Time    `json:"last_activity"`
}

// FrontierEntry is one discovered-but-not-yet-fetched URL in a domain's queue.
// Entries are never deleted; the visited flag doubles as the permanent
// seen-record that prevents re-enqueue.
type FrontierEntry struct {
	Hostname string `json:"hostname"`
	URL      string `json:"url"`
	Depth    int    `json:"depth"`
	Visited  bool   `json:"visited"`
}

// SiteDocument is the indexed record for one canonical URL.
type SiteDocument struct {
	URL               string `json:"url"`
	Depth             int    `json:"depth"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Heading           string `json:"heading"`
	Content           string `json:"content"`
	FaviconURL        string `json:"favicon_url"`
	InternalBacklinks int64  `json:"internal_backlinks"`
	ExternalBacklinks int64  `json:"external_backlinks"`

	// TextScore is the base full-text relevance populated by the index on
	// search candidates. It is never persisted.
	TextScore float64 `json:"-"`
}

// BacklinkKind selects which counter an increment targets.
type BacklinkKind string

// Backlink counter kinds.
const (
	BacklinkInternal BacklinkKind = "internal"
	BacklinkExternal BacklinkKind = "external"
)

// Link is one resolved, canonicalized outbound reference.
type Link struct {
	URL      string
	Hostname string
}

// PageExtract is everything the extractor pulls out of one fetched page.
type PageExtract struct {
	Title       string
	Description string
	Heading     string
	Content     string
	FaviconURL  string

	// InternalLinks point back into the page's own hostname, deduplicated
	// within the extraction pass. ExternalLinks point at other hostnames.
	InternalLinks []string
	ExternalLinks []Link
}

// FetchResponse is the result returned by a Fetcher implementation.
// Statuses below 500 pass through; hard network failures and 5xx
// responses surface as errors instead.
type FetchResponse struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Duration    time.Duration
}

// Stats summarizes crawl progress for the read-only accessors.
type Stats struct {
	DomainsPending  int64 `json:"domains_pending"`
	DomainsComplete int64 `json:"domains_complete"`
	PagesIndexed    int64 `json:"pages_indexed"`
}
