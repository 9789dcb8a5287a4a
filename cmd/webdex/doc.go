// Package main hosts the webdex service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, search and crawl
//     statistics endpoints. Search requests are validated (empty queries
//     redirect home) and served by the ranking engine over the site index.
//   - Scheduler & workers: internal/scheduler selects the least recently
//     active non-complete domains each cycle and fans one worker step out per
//     domain, waiting for the whole batch before pausing and selecting again.
//     Context cancellation stops the loop cleanly on shutdown.
//   - Crawl pipeline: each worker step claims one frontier URL for its
//     domain, fetches it through the Colly-based fetcher with bounded timeout
//     and body size, extracts title/description/heading/content and outbound
//     links via goquery, and upserts the document into the site index.
//     Internal links re-enter the domain's frontier one level deeper;
//     external links register new pending domains and seed their frontiers.
//   - Persistence & fanout: the frontier, domain registry and site index are
//     backed by memory or Postgres (pgx) stores; raw HTML is optionally
//     archived to a BlobStore (memory/local/GCS) and a compact Pub/Sub
//     notification is published per indexed page when a topic is configured.
//   - Ranking: internal/rank multiplies the index's weighted text relevance
//     by depth, backlink authority and exact title/URL-slug boosts, then
//     stable-sorts and paginates.
//   - Configuration & plumbing: Viper populates config from env/files; zap
//     provides structured logging; Prometheus metrics are exported via the
//     /metrics handler; per-hostname rate limiting throttles fetches.
package main
