package backtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"volrv/internal/config"
	"volrv/internal/errors"
	"volrv/internal/logger"
	"volrv/internal/market"
	"volrv/internal/roll"
	"volrv/internal/signal"
)

// Runner wires data loading, roll construction and the backtest engine into
// one deterministic pipeline. Persistence is the caller's concern; the
// runner only produces results.
type Runner struct {
	cfg *config.Config
	log logger.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg *config.Config, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Runner{cfg: cfg, log: log.WithField("component", "runner")}
}

// Run loads the configured inputs and backtests each underlying root found
// in the contracts file. When backtest.underlying is set, only that root
// runs. Roots run concurrently; records within a root stay strictly ordered.
func (r *Runner) Run(ctx context.Context) (map[string]*Result, error) {
	history, err := market.LoadContractsCSV(r.cfg.Data.ContractsFile)
	if err != nil {
		return nil, err
	}
	signals, err := signal.Load(r.cfg.Data.SignalsFile, r.cfg.Data.SignalMetaFile)
	if err != nil {
		return nil, err
	}

	roots := r.selectRoots(history)
	if len(roots) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataMissingFile,
			"no contracts found for underlying %q", r.cfg.Backtest.Underlying)
	}

	results := make(map[string]*Result, len(roots))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, root := range roots {
		wg.Add(1)
		go func(root string) {
			defer wg.Done()
			result, err := r.runRoot(ctx, root, history, signals)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[root] = result
		}(root)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (r *Runner) runRoot(ctx context.Context, root string, history *market.History, signals *signal.Frame) (*Result, error) {
	started := time.Now()
	chain := history.Chains[root]

	rollEngine := roll.NewEngine(r.cfg.Roll, r.log)
	rollResult := rollEngine.Build(chain, history.Calendar)

	rootCfg := *r.cfg
	rootCfg.Backtest.Underlying = root
	engine := NewEngine(&rootCfg, r.log)
	result, err := engine.Run(ctx, rollResult, signals)
	if err != nil {
		return nil, err
	}

	r.log.Info("backtest run complete",
		"underlying", root,
		"run_id", result.RunID,
		"trading_days", result.Summary.TradingDays,
		"net_pnl", result.Summary.TotalNetPnL,
		"roll_events", result.Summary.RollEventCount,
		"elapsed", time.Since(started).String())
	return result, nil
}

func (r *Runner) selectRoots(history *market.History) []string {
	if root := r.cfg.Backtest.Underlying; root != "" {
		if _, ok := history.Chains[root]; ok {
			return []string{root}
		}
		return nil
	}
	roots := make([]string, 0, len(history.Chains))
	for root := range history.Chains {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}
