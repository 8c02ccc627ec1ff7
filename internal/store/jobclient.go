package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"folio/internal/tasks"
)

// Ensure it implements JobClient
var _ JobClient = (*AsynqJobClient)(nil)

// AsynqJobClient enqueues background tasks on Redis.
type AsynqJobClient struct {
	client *asynq.Client
}

// RedisOptions addresses the asynq Redis instance.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewAsynqJobClient(opts RedisOptions) (*AsynqJobClient, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required for the job client")
	}
	cli := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &AsynqJobClient{client: cli}, nil
}

func (jc *AsynqJobClient) Close() error {
	return jc.client.Close()
}

// Enqueue enqueues a task under a generated UUID task id.
func (jc *AsynqJobClient) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if jc.client == nil {
		return nil, fmt.Errorf("AsynqJobClient internal client is not initialized")
	}
	opts = append([]asynq.Option{asynq.TaskID(uuid.NewString())}, opts...)
	info, err := jc.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		log.WithError(err).WithField("type", task.Type()).Error("Failed to enqueue task")
		return nil, err
	}
	log.WithFields(log.Fields{"type": task.Type(), "task_id": info.ID, "queue": info.Queue}).Debug("Enqueued task")
	return info, nil
}

// EnqueueRefresh asks a worker to run a load cycle. Refreshes requested
// within the same minute collapse into one task.
func (jc *AsynqJobClient) EnqueueRefresh(ctx context.Context, reason string) (*asynq.TaskInfo, error) {
	task, err := tasks.NewRefreshTask(reason, time.Now())
	if err != nil {
		return nil, err
	}
	info, err := jc.Enqueue(ctx, task,
		asynq.Queue(tasks.QueueCatalog),
		asynq.Unique(time.Minute),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue catalog refresh: %w", err)
	}
	return info, nil
}
