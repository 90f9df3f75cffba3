package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

func newTestScheduler() *Scheduler {
	return New(logger.NewNop()).WithRetry(2, time.Millisecond)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()
	job := JobFunc{JobName: "refresh", Spec: "0 30 17 * * MON-FRI", Fn: func(context.Context) error { return nil }}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job), "duplicate names are rejected")
	assert.Equal(t, []string{"refresh"}, s.GetAllJobs())

	next, ok := s.NextRun("refresh")
	assert.True(t, ok)
	assert.True(t, next.IsZero(), "next run is only computed once started")
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := newTestScheduler()
	err := s.AddJob(JobFunc{JobName: "bad", Spec: "not a cron", Fn: func(context.Context) error { return nil }})
	assert.Error(t, err)
	assert.Empty(t, s.GetAllJobs())
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(JobFunc{JobName: "a", Spec: "@daily", Fn: func(context.Context) error { return nil }}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
	_, ok := s.NextRun("a")
	assert.False(t, ok)
}

func TestRunJob_Success(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(JobFunc{JobName: "ok", Spec: "@daily", Fn: func(context.Context) error { return nil }}))

	result, err := s.RunJob("ok")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)

	history, err := s.GetJobHistory("ok")
	require.NoError(t, err)
	require.Len(t, history, 1)

	stats := s.GetJobStats()["ok"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)
}

func TestRunJob_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	s := newTestScheduler()
	require.NoError(t, s.AddJob(JobFunc{JobName: "flaky", Spec: "@daily", Fn: func(context.Context) error {
		if calls.Add(1) < 2 {
			return errors.New("transient")
		}
		return nil
	}}))

	result, err := s.RunJob("flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
}

func TestRunJob_FailsAfterRetries(t *testing.T) {
	var calls atomic.Int32
	s := newTestScheduler()
	require.NoError(t, s.AddJob(JobFunc{JobName: "broken", Spec: "@daily", Fn: func(context.Context) error {
		calls.Add(1)
		return errors.New("permanent")
	}}))

	result, err := s.RunJob("broken")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "permanent", result.Error)
	assert.Equal(t, int32(3), calls.Load())

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
}

func TestRunJob_NotFound(t *testing.T) {
	_, err := newTestScheduler().RunJob("missing")
	assert.Error(t, err)
	_, err = newTestScheduler().GetJobHistory("missing")
	assert.Error(t, err)
}

func TestStop_CancelsRunningJob(t *testing.T) {
	s := New(logger.NewNop()).WithRetry(5, time.Hour)
	started := make(chan struct{})
	require.NoError(t, s.AddJob(JobFunc{JobName: "slow", Spec: "@every 1s", Fn: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}))

	done := make(chan JobResult)
	go func() {
		result, _ := s.RunJob("slow")
		done <- result
	}()
	<-started
	s.Stop()

	select {
	case result := <-done:
		assert.False(t, result.Success)
		assert.Equal(t, 1, result.Attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop")
	}
}

func TestJobHistory_Bounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+20; i++ {
		h.AddResult(JobResult{Success: i%2 == 0, Attempts: i})
	}

	assert.Len(t, h.Results, maxHistory)
	assert.Equal(t, 20, h.Results[0].Attempts)
	assert.Equal(t, 0.5, h.SuccessRate())

	latest := h.Latest(3)
	require.Len(t, latest, 3)
	assert.Equal(t, maxHistory+19, latest[2].Attempts)
	assert.Equal(t, 0.0, (&JobHistory{}).SuccessRate())
}
