package jobs

import (
	"context"
	"time"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// RunPruner deletes stored runs older than a cutoff
type RunPruner interface {
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunRetentionJob removes old portfolio run reports
type RunRetentionJob struct {
	runs      RunPruner
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

// NewRunRetentionJob creates a retention job keeping runs for retention
func NewRunRetentionJob(runs RunPruner, retention time.Duration, log *logger.Logger) *RunRetentionJob {
	return &RunRetentionJob{
		runs:      runs,
		retention: retention,
		now:       time.Now,
		logger:    log.WithField("job", "run_retention"),
	}
}

// Name returns the job name
func (j *RunRetentionJob) Name() string {
	return "run_retention"
}

// Schedule returns the cron schedule (Sunday 03:00)
func (j *RunRetentionJob) Schedule() string {
	return "0 0 3 * * SUN"
}

// Run deletes runs created before now minus the retention period
func (j *RunRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)
	deleted, err := j.runs.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": deleted,
	}).Info("Old runs removed")
	return nil
}
