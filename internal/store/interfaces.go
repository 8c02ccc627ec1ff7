package store

import (
	"context"

	"github.com/hibiken/asynq"
)

// --- Job Client ---

type JobClient interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	EnqueueRefresh(ctx context.Context, reason string) (*asynq.TaskInfo, error)
	Close() error
}
