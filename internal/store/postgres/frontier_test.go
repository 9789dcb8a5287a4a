package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/webdex/webdex/internal/crawl"
)

func TestFrontierClaimNextReturnsEntry(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	frontier, err := NewFrontier(mock, "frontier")
	require.NoError(t, err)

	mock.ExpectQuery("UPDATE frontier SET visited = TRUE").
		WithArgs("example.com").
		WillReturnRows(pgxmock.NewRows([]string{"hostname", "url", "depth"}).
			AddRow("example.com", "https://example.com/docs", 2))

	entry, err := frontier.ClaimNext(context.Background(), "example.com")
	require.NoError(t, err)
	require.Equal(t, crawl.FrontierEntry{
		Hostname: "example.com",
		URL:      "https://example.com/docs",
		Depth:    2,
		Visited:  true,
	}, entry)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFrontierClaimNextEmpty(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	frontier, err := NewFrontier(mock, "frontier")
	require.NoError(t, err)

	mock.ExpectQuery("UPDATE frontier SET visited = TRUE").
		WithArgs("example.com").
		WillReturnRows(pgxmock.NewRows([]string{"hostname", "url", "depth"}))

	_, err = frontier.ClaimNext(context.Background(), "example.com")
	require.ErrorIs(t, err, crawl.ErrEmptyFrontier)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFrontierEnqueueIfNew(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	frontier, err := NewFrontier(mock, "frontier")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO frontier").
		WithArgs("example.com", "https://example.com/a", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO frontier").
		WithArgs("example.com", "https://example.com/a", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := frontier.EnqueueIfNew(context.Background(), "example.com", "https://example.com/a", 1)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = frontier.EnqueueIfNew(context.Background(), "example.com", "https://example.com/a", 1)
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewFrontierRejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewFrontier(mock, "frontier; DROP TABLE sites")
	require.Error(t, err)

	_, err = NewFrontier(nil, "frontier")
	require.Error(t, err)
}
