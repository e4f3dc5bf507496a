package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volrv/internal/backtest"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, hit, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	summary := &backtest.Summary{RunID: "run-1", Underlying: "VX", TotalNetPnL: 12.5}
	require.NoError(t, c.Set(ctx, summary, 0))

	got, hit, err := c.Get(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "VX", got.Underlying)
	assert.Equal(t, 12.5, got.TotalNetPnL)

	require.NoError(t, c.Delete(ctx, "run-1"))
	_, hit, err = c.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	summary := &backtest.Summary{RunID: "run-2"}
	require.NoError(t, c.Set(ctx, summary, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, hit, err := c.Get(ctx, "run-2")
	require.NoError(t, err)
	assert.False(t, hit)
}
