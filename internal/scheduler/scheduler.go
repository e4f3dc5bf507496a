// Package scheduler re-runs the backtest pipeline on a cron schedule, for
// deployments where fresh contract and signal files land on a daily cadence.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"volrv/internal/config"
	"volrv/internal/logger"
)

// JobStatus tracks the last outcome of the scheduled run.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// JobState is a snapshot of the scheduled job for health reporting.
type JobState struct {
	Schedule    string    `json:"schedule"`
	Status      JobStatus `json:"status"`
	LastRunTime time.Time `json:"last_run_time,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	RunCount    int       `json:"run_count"`
}

// RunFunc executes one scheduled pipeline pass.
type RunFunc func(ctx context.Context) error

// Scheduler drives periodic pipeline runs.
type Scheduler struct {
	cfg  config.SchedulerConfig
	cron *cron.Cron
	run  RunFunc
	log  logger.Logger

	mu    sync.RWMutex
	state JobState
}

// New creates a scheduler around a run function.
func New(cfg config.SchedulerConfig, run RunFunc, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Scheduler{
		cfg:  cfg,
		cron: cron.New(),
		run:  run,
		log:  log.WithField("component", "scheduler"),
		state: JobState{
			Schedule: cfg.CronSpec,
			Status:   StatusPending,
		},
	}
}

// Start registers the cron entry and begins scheduling.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.CronSpec, func() {
		s.execute(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started", "cron_spec", s.cfg.CronSpec)
	return nil
}

// Stop halts scheduling; a run in flight finishes.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// State returns the current job snapshot.
func (s *Scheduler) State() JobState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Scheduler) execute(ctx context.Context) {
	s.mu.Lock()
	if s.state.Status == StatusRunning {
		s.mu.Unlock()
		s.log.Warn("previous scheduled run still in progress, skipping")
		return
	}
	s.state.Status = StatusRunning
	s.state.LastRunTime = time.Now()
	s.state.RunCount++
	s.mu.Unlock()

	err := s.run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state.Status = StatusFailed
		s.state.LastError = err.Error()
		s.log.Error("scheduled run failed", "error", err)
		return
	}
	s.state.Status = StatusCompleted
	s.state.LastError = ""
	s.log.Info("scheduled run completed", "run_count", s.state.RunCount)
}
