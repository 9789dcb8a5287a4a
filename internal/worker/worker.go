// Package worker implements the per-domain crawl step.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webdex/webdex/internal/crawl"
	"github.com/webdex/webdex/internal/metrics"
)

// Config controls Worker behavior.
type Config struct {
	BlobPrefix         string
	ArchiveContentType string
	Topic              string
}

// Worker executes one crawl step for one domain at a time: claim a
// frontier entry, fetch it, index it and record its outbound links.
type Worker struct {
	frontier  crawl.Frontier
	registry  crawl.DomainRegistry
	index     crawl.SiteIndex
	fetcher   crawl.Fetcher
	extractor crawl.Extractor
	blobStore crawl.BlobStore
	publisher crawl.Publisher
	hasher    crawl.Hasher
	limiter   crawl.Limiter
	clock     crawl.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. blobStore, publisher and limiter may be nil,
// which disables archival, event publishing and throttling respectively.
func New(
	frontier crawl.Frontier,
	registry crawl.DomainRegistry,
	index crawl.SiteIndex,
	fetcher crawl.Fetcher,
	extractor crawl.Extractor,
	blobStore crawl.BlobStore,
	publisher crawl.Publisher,
	hasher crawl.Hasher,
	limiter crawl.Limiter,
	clock crawl.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.ArchiveContentType == "" {
		cfg.ArchiveContentType = "text/html; charset=utf-8"
	}
	return &Worker{
		frontier:  frontier,
		registry:  registry,
		index:     index,
		fetcher:   fetcher,
		extractor: extractor,
		blobStore: blobStore,
		publisher: publisher,
		hasher:    hasher,
		limiter:   limiter,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Step runs one single-page crawl pass for hostname. A drained frontier
// marks the domain complete; every other outcome, success or failure,
// touches the domain's last-activity timestamp so the scheduler moves on.
// Errors are handled here and never propagated.
func (w *Worker) Step(ctx context.Context, hostname string) {
	entry, err := w.frontier.ClaimNext(ctx, hostname)
	if err != nil {
		if errors.Is(err, crawl.ErrEmptyFrontier) {
			w.complete(ctx, hostname)
			return
		}
		w.logger.Error("frontier claim failed", zap.String("hostname", hostname), zap.Error(err))
		w.touch(ctx, hostname)
		return
	}

	if err := w.processEntry(ctx, entry); err != nil {
		metrics.ObserveCrawl(hostname, "error")
		w.logger.Warn("page step failed",
			zap.String("hostname", hostname),
			zap.String("url", entry.URL),
			zap.Error(err),
		)
	}
	w.touch(ctx, hostname)
}

func (w *Worker) processEntry(ctx context.Context, entry crawl.FrontierEntry) error {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx, entry.Hostname); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	resp, err := w.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", entry.URL, err)
	}

	if resp.StatusCode >= 400 || !crawl.IsHTMLContent(resp.ContentType) {
		metrics.ObserveCrawl(entry.Hostname, "rejected")
		w.logger.Debug("page rejected",
			zap.String("url", entry.URL),
			zap.Int("status", resp.StatusCode),
			zap.String("content_type", resp.ContentType),
		)
		return nil
	}

	blobURI := w.archive(ctx, entry.Hostname, resp)

	extract, err := w.extractor.Extract(resp.URL, resp.ContentType, resp.Body)
	if err != nil {
		return fmt.Errorf("extract %s: %w", entry.URL, err)
	}

	doc := crawl.SiteDocument{
		URL:         entry.URL,
		Depth:       entry.Depth,
		Title:       extract.Title,
		Description: extract.Description,
		Heading:     extract.Heading,
		Content:     extract.Content,
		FaviconURL:  extract.FaviconURL,
	}
	if err := w.index.UpsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("upsert document %s: %w", entry.URL, err)
	}

	w.recordInternalLinks(ctx, entry, extract.InternalLinks)
	w.recordExternalLinks(ctx, extract.ExternalLinks)
	w.publish(ctx, entry, resp, blobURI)

	metrics.ObserveCrawl(entry.Hostname, "indexed")
	w.logger.Info("page indexed",
		zap.String("url", entry.URL),
		zap.Int("depth", entry.Depth),
		zap.Int("internal_links", len(extract.InternalLinks)),
		zap.Int("external_links", len(extract.ExternalLinks)),
	)
	return nil
}

// archive is best-effort: a failed hash or upload is logged and the page
// is indexed without a blob URI.
func (w *Worker) archive(ctx context.Context, hostname string, resp crawl.FetchResponse) string {
	if w.blobStore == nil {
		return ""
	}

	hash, err := w.hasher.Hash(resp.Body)
	if err != nil {
		w.logger.Warn("hash body failed", zap.String("url", resp.URL), zap.Error(err))
		return ""
	}

	uri, err := w.blobStore.PutObject(ctx, w.buildBlobPath(hostname, hash), w.cfg.ArchiveContentType, resp.Body)
	if err != nil {
		w.logger.Warn("archive page failed", zap.String("url", resp.URL), zap.Error(err))
		return ""
	}
	return uri
}

func (w *Worker) buildBlobPath(hostname, hash string) string {
	prefix := strings.Trim(w.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", hostname, hash)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, hostname, hash)
}

func (w *Worker) recordInternalLinks(ctx context.Context, entry crawl.FrontierEntry, links []string) {
	for _, link := range links {
		created, err := w.frontier.EnqueueIfNew(ctx, entry.Hostname, link, entry.Depth+1)
		switch {
		case err != nil:
			w.logger.Warn("enqueue internal link failed", zap.String("url", link), zap.Error(err))
		case created:
			metrics.ObserveEnqueue()
		}

		if err := w.index.IncrementBacklink(ctx, link, crawl.BacklinkInternal); err != nil {
			w.logger.Warn("internal backlink increment failed", zap.String("url", link), zap.Error(err))
		}
	}
}

func (w *Worker) recordExternalLinks(ctx context.Context, links []crawl.Link) {
	for _, link := range links {
		if err := w.registry.RegisterIfNew(ctx, link.Hostname); err != nil {
			w.logger.Warn("register domain failed", zap.String("hostname", link.Hostname), zap.Error(err))
		} else {
			metrics.ObserveDomainRegistered()
		}

		created, err := w.frontier.EnqueueIfNew(ctx, link.Hostname, link.URL, 0)
		switch {
		case err != nil:
			w.logger.Warn("enqueue external link failed", zap.String("url", link.URL), zap.Error(err))
		case created:
			metrics.ObserveEnqueue()
		}

		if err := w.index.IncrementBacklink(ctx, link.URL, crawl.BacklinkExternal); err != nil {
			w.logger.Warn("external backlink increment failed", zap.String("url", link.URL), zap.Error(err))
		}
	}
}

func (w *Worker) publish(ctx context.Context, entry crawl.FrontierEntry, resp crawl.FetchResponse, blobURI string) {
	if w.cfg.Topic == "" || w.publisher == nil {
		return
	}

	payload := map[string]any{
		"hostname":  entry.Hostname,
		"url":       entry.URL,
		"depth":     entry.Depth,
		"status":    resp.StatusCode,
		"blob_uri":  blobURI,
		"timestamp": w.clock.Now().Format(time.RFC3339),
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, payload); err != nil {
		w.logger.Warn("publish indexed page failed", zap.String("url", entry.URL), zap.Error(err))
	}
}

func (w *Worker) complete(ctx context.Context, hostname string) {
	if err := w.registry.MarkComplete(ctx, hostname); err != nil {
		w.logger.Error("mark domain complete failed", zap.String("hostname", hostname), zap.Error(err))
		return
	}
	metrics.ObserveDomainCompleted()
	w.logger.Info("domain complete", zap.String("hostname", hostname))
}

func (w *Worker) touch(ctx context.Context, hostname string) {
	if err := w.registry.TouchActivity(ctx, hostname, w.clock.Now()); err != nil {
		w.logger.Warn("touch activity failed", zap.String("hostname", hostname), zap.Error(err))
	}
}
