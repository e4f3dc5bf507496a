// Package cache keeps hot run summaries out of the artifact store's way.
// Summaries are immutable once written, so cache coherence reduces to TTL
// plus explicit invalidation on delete.
package cache

import (
	"context"
	"time"

	"volrv/internal/backtest"
)

// SummaryCache caches run summaries for the API layer.
type SummaryCache interface {
	Get(ctx context.Context, runID string) (*backtest.Summary, bool, error)
	Set(ctx context.Context, summary *backtest.Summary, ttl time.Duration) error
	Delete(ctx context.Context, runID string) error
	Close() error
}
