package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webdex/webdex/internal/crawl"
	"github.com/webdex/webdex/internal/id/uuid"
	"github.com/webdex/webdex/internal/rank"
	storemem "github.com/webdex/webdex/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *storemem.Registry, *storemem.Index) {
	t.Helper()

	registry := storemem.NewRegistry()
	index := storemem.NewIndex()
	engine := rank.New(index, 15)
	return NewServer(engine, registry, index, uuid.New(), zap.NewNop()), registry, index
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSearch_ReturnsRankedResults(t *testing.T) {
	t.Parallel()

	s, _, index := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, index.UpsertDocument(ctx, crawl.SiteDocument{
		URL:   "https://example.com/rust",
		Depth: 0,
		Title: "Rust Language",
	}))
	require.NoError(t, index.UpsertDocument(ctx, crawl.SiteDocument{
		URL:     "https://example.com/deep/page",
		Depth:   3,
		Content: "some rust content",
	}))

	rec := doRequest(s, http.MethodGet, "/search?q=rust")
	require.Equal(t, http.StatusOK, rec.Code)

	var result rank.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, "rust", result.Query)
	require.Equal(t, 2, result.TotalMatches)
	require.Len(t, result.Documents, 2)
	require.Equal(t, "https://example.com/rust", result.Documents[0].URL)
}

func TestSearch_EmptyQueryRedirectsHome(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	for _, target := range []string{"/search", "/search?q=", "/search?q=%20%20"} {
		rec := doRequest(s, http.MethodGet, target)
		require.Equal(t, http.StatusSeeOther, rec.Code, target)
		require.Equal(t, "/", rec.Header().Get("Location"), target)
	}
}

func TestSearch_InvalidPageDefaultsToFirst(t *testing.T) {
	t.Parallel()

	s, _, index := newTestServer(t)
	require.NoError(t, index.UpsertDocument(context.Background(), crawl.SiteDocument{
		URL:   "https://example.com/go",
		Title: "Go",
	}))

	rec := doRequest(s, http.MethodGet, "/search?q=go&page=abc")
	require.Equal(t, http.StatusOK, rec.Code)

	var result rank.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.Page)
}

func TestStats(t *testing.T) {
	t.Parallel()

	s, registry, index := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, registry.RegisterIfNew(ctx, "a.com"))
	require.NoError(t, registry.RegisterIfNew(ctx, "b.com"))
	require.NoError(t, registry.MarkComplete(ctx, "b.com"))
	require.NoError(t, index.UpsertDocument(ctx, crawl.SiteDocument{URL: "https://a.com"}))

	rec := doRequest(s, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats crawl.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, int64(1), stats.DomainsPending)
	require.Equal(t, int64(1), stats.DomainsComplete)
	require.Equal(t, int64(1), stats.PagesIndexed)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Body.String())
}
