package store

import (
	"context"

	"volrv/internal/backtest"
	"volrv/internal/roll"
)

// Repository persists backtest runs and serves their artifacts back to the
// API layer. Implementations must store records exactly as produced; the
// engine's output is the single source of truth and is never recomputed on
// read.
type Repository interface {
	SaveRun(ctx context.Context, result *backtest.Result) error
	GetSummary(ctx context.Context, runID string) (*backtest.Summary, error)
	ListRuns(ctx context.Context, limit int) ([]backtest.Summary, error)
	GetPositions(ctx context.Context, runID string) ([]backtest.Position, error)
	GetTrades(ctx context.Context, runID string) ([]backtest.Trade, error)
	GetPnL(ctx context.Context, runID string) ([]backtest.PnLRecord, error)
	GetAttribution(ctx context.Context, runID string) ([]backtest.AttributionRecord, error)
	GetRollEvents(ctx context.Context, runID string) ([]roll.Event, error)
	DeleteRun(ctx context.Context, runID string) error
	Close() error
}

// ErrRunNotFound is returned by lookups for a run ID that was never saved.
var ErrRunNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "run not found" }
