package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"volrv/internal/backtest"
	"volrv/internal/config"
	"volrv/internal/errors"
	"volrv/internal/logger"
	"volrv/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to the config file")
		contracts  = flag.String("contracts", "", "override contracts CSV path")
		signals    = flag.String("signals", "", "override signals CSV path")
		signalMeta = flag.String("signal-meta", "", "override signal lag metadata path")
		underlying = flag.String("underlying", "", "override underlying root")
		allRoots   = flag.Bool("all", false, "run every root in the contracts file")
		outputDir  = flag.String("out", "", "override output directory")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *contracts != "" {
		cfg.Data.ContractsFile = *contracts
	}
	if *signals != "" {
		cfg.Data.SignalsFile = *signals
	}
	if *signalMeta != "" {
		cfg.Data.SignalMetaFile = *signalMeta
	}
	if *underlying != "" {
		cfg.Backtest.Underlying = *underlying
	}
	if *allRoots {
		cfg.Backtest.Underlying = ""
	}
	if *outputDir != "" {
		cfg.Data.OutputDir = *outputDir
	}

	logger.Init(cfg.Logging)
	appLog := logger.GetGlobalLogger()

	runner := backtest.NewRunner(cfg, appLog)
	results, err := runner.Run(context.Background())
	if err != nil {
		if runErr := errors.GetRunError(err); runErr != nil {
			appLog.Error("run failed", "code", string(runErr.Code), "error", runErr.Error())
		} else {
			appLog.Error("run failed", "error", err)
		}
		os.Exit(1)
	}

	files := store.NewFileStore(cfg.Data.OutputDir)
	roots := make([]string, 0, len(results))
	for root := range results {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	for _, root := range roots {
		result := results[root]
		dir, err := files.Export(result)
		if err != nil {
			appLog.Error("export failed", "underlying", root, "error", err)
			os.Exit(1)
		}
		s := result.Summary
		fmt.Printf("%s  run=%s  days=%d  net_pnl=%.2f  sharpe=%.2f  max_dd=%.2f  rolls=%d  ->  %s\n",
			root, s.RunID, s.TradingDays, s.TotalNetPnL, s.Sharpe, s.MaxDrawdown,
			s.RollEventCount, dir)
	}
}
