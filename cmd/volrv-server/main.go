package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"volrv/internal/api"
	"volrv/internal/backtest"
	"volrv/internal/cache"
	"volrv/internal/config"
	"volrv/internal/database"
	"volrv/internal/logger"
	"volrv/internal/monitoring"
	"volrv/internal/scheduler"
	"volrv/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)
	appLog := logger.GetGlobalLogger()

	// Postgres is optional: without it the server keeps runs in memory,
	// which suits research deployments that only export files.
	var repo store.Repository
	if cfg.Database.Enabled {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		repo = store.NewPostgresRepository(db)
		appLog.Info("artifact store: postgres",
			"host", cfg.Database.Host, "dbname", cfg.Database.DBName)
	} else {
		repo = store.NewMemoryRepository()
		appLog.Info("artifact store: in-memory")
	}
	defer repo.Close()

	var summaries cache.SummaryCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			appLog.Warn("redis unavailable, falling back to in-process cache", "error", err)
			summaries = cache.NewMemoryCache()
		} else {
			summaries = redisCache
		}
	} else {
		summaries = cache.NewMemoryCache()
	}
	defer summaries.Close()

	metrics := monitoring.NewMetrics()
	runner := backtest.NewRunner(cfg, appLog)
	files := store.NewFileStore(cfg.Data.OutputDir)

	server := api.NewServer(cfg, repo, summaries, runner, files, metrics, appLog)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(cfg.Scheduler, func(ctx context.Context) error {
			started := time.Now()
			results, err := runner.Run(ctx)
			if err != nil {
				metrics.RecordRun("all", "failed", time.Since(started))
				return err
			}
			for _, result := range results {
				if err := repo.SaveRun(ctx, result); err != nil {
					return err
				}
				if _, err := files.Export(result); err != nil {
					return err
				}
				metrics.RecordRun(result.Underlying, "completed", time.Since(started))
				metrics.RecordResult(result)
			}
			return nil
		}, appLog)
		if err := sched.Start(); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
	}

	go func() {
		if err := server.Start(); err != nil {
			appLog.Fatal("api server failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	appLog.Info("shutting down", "signal", sig.String())

	if sched != nil {
		sched.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("shutdown error", "error", err)
	}
}
