package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sfeir-open-source/lendkit"
)

// AuditCleanupJob runs the audit retention sweep.
type AuditCleanupJob struct {
	Cleaner lendkit.AuditCleaner
	Logger  *slog.Logger
	Metrics *Metrics
}

// NewAuditCleanupJob wires dependencies for the cleanup handler.
func NewAuditCleanupJob(cleaner lendkit.AuditCleaner, logger *slog.Logger, metrics *Metrics) *AuditCleanupJob {
	return &AuditCleanupJob{Cleaner: cleaner, Logger: logger, Metrics: metrics}
}

// Handle processes TaskAuditCleanup tasks. The sweep is idempotent, so failed
// runs are left to Asynq's retry policy.
func (j *AuditCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cleaner == nil {
		return errors.New("audit cleanup: handler not configured")
	}
	var payload AuditCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Trigger == "" {
		payload.Trigger = TriggerCron
	}

	tracker := j.Metrics.Track(TaskAuditCleanup)
	logger := j.logger().With(slog.String("job", TaskAuditCleanup), slog.String("trigger", payload.Trigger))

	deleted, err := j.Cleaner.CleanupOldEntries(ctx)
	if err != nil {
		logger.Error("audit cleanup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.AddDeleted(deleted)
	logger.Info("audit cleanup completed", slog.Int("deleted", deleted))
	return tracker.End(nil)
}

func (j *AuditCleanupJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return j.Logger
}
