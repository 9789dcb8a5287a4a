package system

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockNowIsUTC(t *testing.T) {
	t.Parallel()

	now := New().Now()
	require.Equal(t, time.UTC, now.Location())
	require.WithinDuration(t, time.Now().UTC(), now, time.Second)
}

func TestSleeperWakesOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	NewSleeper().Sleep(ctx, time.Minute)
	require.Less(t, time.Since(start), time.Second)
}

func TestSleeperSleepsFullDuration(t *testing.T) {
	t.Parallel()

	start := time.Now()
	NewSleeper().Sleep(context.Background(), 20*time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
