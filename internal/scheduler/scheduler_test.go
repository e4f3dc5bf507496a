package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volrv/internal/config"
)

func TestExecuteTracksOutcome(t *testing.T) {
	calls := 0
	s := New(config.SchedulerConfig{CronSpec: "@daily"}, func(context.Context) error {
		calls++
		return nil
	}, nil)

	assert.Equal(t, StatusPending, s.State().Status)

	s.execute(context.Background())
	state := s.State()
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, 1, state.RunCount)
	assert.Empty(t, state.LastError)
	assert.Equal(t, 1, calls)
}

func TestExecuteRecordsFailure(t *testing.T) {
	s := New(config.SchedulerConfig{CronSpec: "@daily"}, func(context.Context) error {
		return errors.New("signals file not found")
	}, nil)

	s.execute(context.Background())
	state := s.State()
	assert.Equal(t, StatusFailed, state.Status)
	assert.Contains(t, state.LastError, "signals file not found")

	// A later success clears the error.
	s.run = func(context.Context) error { return nil }
	s.execute(context.Background())
	state = s.State()
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Empty(t, state.LastError)
	assert.Equal(t, 2, state.RunCount)
}

func TestStartRejectsBadCronSpec(t *testing.T) {
	s := New(config.SchedulerConfig{CronSpec: "not a cron spec"}, func(context.Context) error {
		return nil
	}, nil)
	require.Error(t, s.Start())
}
