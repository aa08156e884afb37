package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueMaintenance is the queue retention jobs run on.
	QueueMaintenance = "maintenance"
	// TaskAuditCleanup is the task type of the audit retention sweep.
	TaskAuditCleanup = "audit:cleanup"
)

// Triggers recorded on cleanup payloads.
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// AuditCleanupPayload describes one retention sweep request.
type AuditCleanupPayload struct {
	Trigger string `json:"trigger"`
}

// NewAuditCleanupTask constructs an Asynq task for the retention sweep.
// An empty trigger means TriggerCron.
func NewAuditCleanupTask(trigger string) (*asynq.Task, error) {
	if trigger == "" {
		trigger = TriggerCron
	}
	data, err := json.Marshal(AuditCleanupPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditCleanup, data, asynq.Queue(QueueMaintenance)), nil
}
