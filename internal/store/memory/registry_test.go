package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webdex/webdex/internal/crawl"
)

func TestRegistrySelectBatchOrdering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewRegistry()
	for _, host := range []string{"a.com", "b.com", "c.com"} {
		require.NoError(t, r.RegisterIfNew(ctx, host))
	}
	base := time.Unix(1000, 0).UTC()
	require.NoError(t, r.TouchActivity(ctx, "a.com", base.Add(2*time.Hour)))
	require.NoError(t, r.TouchActivity(ctx, "b.com", base))
	require.NoError(t, r.TouchActivity(ctx, "c.com", base.Add(time.Hour)))

	batch, err := r.SelectBatch(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, "b.com", batch[0].Hostname)
	require.Equal(t, "c.com", batch[1].Hostname)
}

func TestRegistryCompleteDomainsAreSkipped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewRegistry()
	require.NoError(t, r.RegisterIfNew(ctx, "a.com"))
	require.NoError(t, r.RegisterIfNew(ctx, "b.com"))
	require.NoError(t, r.MarkComplete(ctx, "a.com"))

	batch, err := r.SelectBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, "b.com", batch[0].Hostname)

	// Re-registering a complete domain does not reopen it.
	require.NoError(t, r.RegisterIfNew(ctx, "a.com"))
	batch, err = r.SelectBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
}

func TestRegistryNeverDowngradesStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewRegistry()
	require.NoError(t, r.RegisterIfNew(ctx, "a.com"))
	require.NoError(t, r.MarkComplete(ctx, "a.com"))
	require.NoError(t, r.RegisterIfNew(ctx, "a.com"))

	counts, err := r.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[crawl.DomainStatusComplete])
	require.Zero(t, counts[crawl.DomainStatusPending])
}

func TestRegistryNewDomainIsSelectedFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewRegistry()
	require.NoError(t, r.RegisterIfNew(ctx, "old.com"))
	require.NoError(t, r.TouchActivity(ctx, "old.com", time.Unix(500, 0)))
	require.NoError(t, r.RegisterIfNew(ctx, "new.com"))

	// A fresh registration carries a zero timestamp, so it sorts first.
	batch, err := r.SelectBatch(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "new.com", batch[0].Hostname)
}
