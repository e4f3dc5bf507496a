package store

import (
	"context"
	"sync"

	"volrv/internal/backtest"
	"volrv/internal/roll"
)

// MemoryRepository keeps runs in process memory. It backs tests and
// single-shot CLI runs that export to files without a database.
type MemoryRepository struct {
	mu    sync.RWMutex
	runs  map[string]*backtest.Result
	order []string // insertion order, newest last
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{runs: make(map[string]*backtest.Result)}
}

func (r *MemoryRepository) SaveRun(_ context.Context, result *backtest.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[result.RunID]; !exists {
		r.order = append(r.order, result.RunID)
	}
	r.runs[result.RunID] = result
	return nil
}

func (r *MemoryRepository) GetSummary(_ context.Context, runID string) (*backtest.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	summary := result.Summary
	return &summary, nil
}

func (r *MemoryRepository) ListRuns(_ context.Context, limit int) ([]backtest.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	summaries := make([]backtest.Summary, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		if limit > 0 && len(summaries) >= limit {
			break
		}
		summaries = append(summaries, r.runs[r.order[i]].Summary)
	}
	return summaries, nil
}

func (r *MemoryRepository) GetPositions(_ context.Context, runID string) ([]backtest.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return result.Positions, nil
}

func (r *MemoryRepository) GetTrades(_ context.Context, runID string) ([]backtest.Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return result.Trades, nil
}

func (r *MemoryRepository) GetPnL(_ context.Context, runID string) ([]backtest.PnLRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return result.PnL, nil
}

func (r *MemoryRepository) GetAttribution(_ context.Context, runID string) ([]backtest.AttributionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return result.Attribution, nil
}

func (r *MemoryRepository) GetRollEvents(_ context.Context, runID string) ([]roll.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return result.RollEvents, nil
}

func (r *MemoryRepository) DeleteRun(_ context.Context, runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[runID]; !ok {
		return ErrRunNotFound
	}
	delete(r.runs, runID)
	for i, id := range r.order {
		if id == runID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository) Close() error { return nil }
