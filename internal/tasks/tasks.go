package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"folio/internal/models"
)

// Defines constants for task types used in Asynq.

const (
	// TypeCatalogRefresh is the task type for running one project load cycle.
	TypeCatalogRefresh = "catalog:refresh"

	// QueueCatalog is the queue refresh tasks are enqueued on.
	QueueCatalog = "catalog"
)

// RefreshPayload describes why a refresh was requested.
type RefreshPayload struct {
	Reason      string    `json:"reason"` // "cli", "schedule", ...
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshTask builds a catalog:refresh task.
func NewRefreshTask(reason string, requestedAt time.Time) (*asynq.Task, error) {
	b, err := json.Marshal(RefreshPayload{Reason: reason, RequestedAt: requestedAt.UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode refresh payload: %w", err)
	}
	return asynq.NewTask(TypeCatalogRefresh, b), nil
}

// Refresher runs a load cycle; *services.ProjectService satisfies it.
type Refresher interface {
	Load(ctx context.Context) error
	Snapshot() models.State
}

// HandleRefresh returns the asynq handler for TypeCatalogRefresh.
// A cycle that is already running absorbs the request, so ErrLoadInProgress is not retried.
func HandleRefresh(r Refresher) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p RefreshPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &p); err != nil {
				return fmt.Errorf("decode refresh payload: %v: %w", err, asynq.SkipRetry)
			}
		}
		logger := log.WithFields(log.Fields{"task": t.Type(), "reason": p.Reason})
		if !p.RequestedAt.IsZero() {
			logger = logger.WithField("queued_for", time.Since(p.RequestedAt).Round(time.Millisecond))
		}

		if err := r.Load(ctx); err != nil {
			if errors.Is(err, models.ErrLoadInProgress) {
				logger.Info("Refresh skipped, a load cycle is already running")
				return nil
			}
			return fmt.Errorf("refresh catalog: %w", err)
		}

		state := r.Snapshot()
		logger.WithFields(log.Fields{
			"cycle_id": state.CycleID,
			"projects": len(state.Collection),
			"banners":  len(state.Banners),
		}).Info("Refresh task complete")
		return nil
	}
}
