// Package jobs contains background task definitions and the Asynq worker
// runtime.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPermissionsWarmup re-populates permission caches after an epoch bump.
	TaskPermissionsWarmup = "authz:permissions_warmup"
)

// PermissionsWarmupPayload parameterises a warmup run.
type PermissionsWarmupPayload struct {
	// RequestedAt records when the warmup was enqueued, for queue-lag logging.
	RequestedAt time.Time `json:"requested_at"`
}

// NewPermissionsWarmupTask constructs an Asynq task.
func NewPermissionsWarmupTask(payload PermissionsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPermissionsWarmup, data), nil
}
