package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webdex/webdex/internal/crawl"
)

func TestIndexUpsertPreservesCounters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ix := NewIndex()

	require.NoError(t, ix.UpsertDocument(ctx, crawl.SiteDocument{URL: "https://a.com", Title: "first"}))
	require.NoError(t, ix.IncrementBacklink(ctx, "https://a.com", crawl.BacklinkInternal))
	require.NoError(t, ix.IncrementBacklink(ctx, "https://a.com", crawl.BacklinkExternal))
	require.NoError(t, ix.IncrementBacklink(ctx, "https://a.com", crawl.BacklinkExternal))

	// Re-crawl overwrites fields but never resets counters.
	require.NoError(t, ix.UpsertDocument(ctx, crawl.SiteDocument{URL: "https://a.com", Title: "second"}))

	docs, err := ix.SearchCandidates(ctx, "second")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, int64(1), docs[0].InternalBacklinks)
	require.Equal(t, int64(2), docs[0].ExternalBacklinks)
}

func TestIndexIncrementBeforeCrawl(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ix := NewIndex()

	// The counter row may exist before the page itself is ever crawled.
	require.NoError(t, ix.IncrementBacklink(ctx, "https://a.com/later", crawl.BacklinkInternal))
	require.NoError(t, ix.IncrementBacklink(ctx, "https://a.com/later", crawl.BacklinkInternal))

	require.NoError(t, ix.UpsertDocument(ctx, crawl.SiteDocument{URL: "https://a.com/later", Title: "arrived"}))
	docs, err := ix.SearchCandidates(ctx, "arrived")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, int64(2), docs[0].InternalBacklinks)
}

func TestIndexFieldWeights(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ix := NewIndex()

	require.NoError(t, ix.UpsertDocument(ctx, crawl.SiteDocument{URL: "https://t.com", Title: "rust"}))
	require.NoError(t, ix.UpsertDocument(ctx, crawl.SiteDocument{URL: "https://h.com", Heading: "rust"}))
	require.NoError(t, ix.UpsertDocument(ctx, crawl.SiteDocument{URL: "https://d.com", Description: "rust"}))
	require.NoError(t, ix.UpsertDocument(ctx, crawl.SiteDocument{URL: "https://c.com", Content: "rust"}))

	docs, err := ix.SearchCandidates(ctx, "Rust")
	require.NoError(t, err)
	require.Len(t, docs, 4)

	scores := make(map[string]float64, len(docs))
	for _, d := range docs {
		scores[d.URL] = d.TextScore
	}
	require.Equal(t, float64(10), scores["https://t.com"])
	require.Equal(t, float64(5), scores["https://h.com"])
	require.Equal(t, float64(2), scores["https://d.com"])
	require.Equal(t, float64(1), scores["https://c.com"])
}

func TestIndexCountMatchesIndependentOfScoring(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ix := NewIndex()
	require.NoError(t, ix.UpsertDocument(ctx, crawl.SiteDocument{URL: "https://a.com", Content: "go and rust"}))
	require.NoError(t, ix.UpsertDocument(ctx, crawl.SiteDocument{URL: "https://b.com", Content: "only go"}))
	require.NoError(t, ix.UpsertDocument(ctx, crawl.SiteDocument{URL: "https://c.com", Content: "rust again"}))

	count, err := ix.CountMatches(ctx, "rust")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	total, err := ix.CountDocuments(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
}
