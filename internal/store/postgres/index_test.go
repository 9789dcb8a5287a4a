package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/webdex/webdex/internal/crawl"
)

func TestIndexUpsertDocument(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	index, err := NewIndex(mock, "sites")
	require.NoError(t, err)

	doc := crawl.SiteDocument{
		URL:         "https://example.com/docs",
		Depth:       1,
		Title:       "Docs",
		Description: "All the docs",
		Heading:     "Documentation",
		Content:     "body text",
		FaviconURL:  "https://example.com/favicon.ico",
	}
	mock.ExpectExec("INSERT INTO sites").
		WithArgs(doc.URL, doc.Depth, doc.Title, doc.Description, doc.Heading, doc.Content, doc.FaviconURL).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, index.UpsertDocument(context.Background(), doc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexIncrementBacklink(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	index, err := NewIndex(mock, "sites")
	require.NoError(t, err)

	mock.ExpectExec("internal_backlinks").
		WithArgs("https://example.com/a").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("external_backlinks").
		WithArgs("https://example.com/a").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, index.IncrementBacklink(context.Background(), "https://example.com/a", crawl.BacklinkInternal))
	require.NoError(t, index.IncrementBacklink(context.Background(), "https://example.com/a", crawl.BacklinkExternal))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexSearchCandidates(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	index, err := NewIndex(mock, "sites")
	require.NoError(t, err)

	mock.ExpectQuery("plainto_tsquery").
		WithArgs("rust").
		WillReturnRows(pgxmock.NewRows([]string{
			"url", "depth", "title", "description", "heading", "content",
			"favicon_url", "internal_backlinks", "external_backlinks", "score",
		}).AddRow(
			"https://example.com", 0, "Rust", "desc", "h1", "content",
			"", int64(5), int64(2), 3.5,
		))

	docs, err := index.SearchCandidates(context.Background(), "rust")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, 3.5, docs[0].TextScore)
	require.Equal(t, int64(5), docs[0].InternalBacklinks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexCounts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	index, err := NewIndex(mock, "sites")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT count").
		WithArgs("rust").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(37))
	mock.ExpectQuery("SELECT count").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(120)))

	matches, err := index.CountMatches(context.Background(), "rust")
	require.NoError(t, err)
	require.Equal(t, 37, matches)

	total, err := index.CountDocuments(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(120), total)
	require.NoError(t, mock.ExpectationsWereMet())
}
