package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/webdex/webdex/internal/crawl"
)

// Field weights feeding the base text relevance score.
const (
	weightContent     = 1
	weightDescription = 2
	weightHeading     = 5
	weightTitle       = 10
)

// Index is an in-memory site index with weighted term-frequency scoring.
type Index struct {
	mu    sync.RWMutex
	docs  map[string]*crawl.SiteDocument
	order []string
}

// NewIndex constructs an Index.
func NewIndex() *Index {
	return &Index{docs: make(map[string]*crawl.SiteDocument)}
}

// UpsertDocument overwrites content fields; backlink counters survive
// updates and start at zero on first insert.
func (ix *Index) UpsertDocument(_ context.Context, doc crawl.SiteDocument) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	existing, ok := ix.docs[doc.URL]
	if !ok {
		stored := doc
		stored.InternalBacklinks = 0
		stored.ExternalBacklinks = 0
		ix.docs[doc.URL] = &stored
		ix.order = append(ix.order, doc.URL)
		return nil
	}
	existing.Depth = doc.Depth
	existing.Title = doc.Title
	existing.Description = doc.Description
	existing.Heading = doc.Heading
	existing.Content = doc.Content
	existing.FaviconURL = doc.FaviconURL
	return nil
}

// IncrementBacklink bumps one counter, creating a bare row when the URL has
// never been crawled.
func (ix *Index) IncrementBacklink(_ context.Context, url string, kind crawl.BacklinkKind) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	doc, ok := ix.docs[url]
	if !ok {
		doc = &crawl.SiteDocument{URL: url}
		ix.docs[url] = doc
		ix.order = append(ix.order, url)
	}
	switch kind {
	case crawl.BacklinkExternal:
		doc.ExternalBacklinks++
	default:
		doc.InternalBacklinks++
	}
	return nil
}

// SearchCandidates returns matching documents in insertion order with
// TextScore set to the weighted term-frequency relevance.
func (ix *Index) SearchCandidates(_ context.Context, query string) ([]crawl.SiteDocument, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	terms := queryTerms(query)
	var out []crawl.SiteDocument
	for _, url := range ix.order {
		doc := ix.docs[url]
		score := textScore(doc, terms)
		if score <= 0 {
			continue
		}
		match := *doc
		match.TextScore = score
		out = append(out, match)
	}
	return out, nil
}

// CountMatches counts text-matching documents.
func (ix *Index) CountMatches(_ context.Context, query string) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	terms := queryTerms(query)
	count := 0
	for _, doc := range ix.docs {
		if textScore(doc, terms) > 0 {
			count++
		}
	}
	return count, nil
}

// CountDocuments reports the total indexed row count.
func (ix *Index) CountDocuments(_ context.Context) (int64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return int64(len(ix.docs)), nil
}

func queryTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

func textScore(doc *crawl.SiteDocument, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	title := strings.ToLower(doc.Title)
	description := strings.ToLower(doc.Description)
	heading := strings.ToLower(doc.Heading)
	content := strings.ToLower(doc.Content)

	score := 0
	for _, term := range terms {
		score += weightTitle * strings.Count(title, term)
		score += weightDescription * strings.Count(description, term)
		score += weightHeading * strings.Count(heading, term)
		score += weightContent * strings.Count(content, term)
	}
	return float64(score)
}
