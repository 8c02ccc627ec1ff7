package costtracker

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"folio/internal/config"
)

// CostEvent represents a single AI usage event and its cost.
type CostEvent struct {
	Operation    string // e.g., "categorization"
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	AmountUSD    float64
	Timestamp    time.Time
	Details      map[string]interface{}
}

// Summary aggregates recorded events.
type Summary struct {
	Calls        int     `json:"calls"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	TotalUSD     float64 `json:"totalUsd"`
}

// CostTracker provides methods to record and report costs.
type CostTracker interface {
	RecordCost(ctx context.Context, event CostEvent) error
	TotalCost(ctx context.Context) (float64, error)
	Summary(ctx context.Context) (Summary, error)
}

// New returns an in-memory tracker; usage is kept for the life of the process.
func New() CostTracker {
	return &memoryCostTracker{}
}

type memoryCostTracker struct {
	mu      sync.Mutex
	summary Summary
}

func (m *memoryCostTracker) RecordCost(ctx context.Context, event CostEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary.Calls++
	m.summary.InputTokens += int64(event.InputTokens)
	m.summary.OutputTokens += int64(event.OutputTokens)
	m.summary.TotalUSD += event.AmountUSD
	return nil
}

func (m *memoryCostTracker) TotalCost(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary.TotalUSD, nil
}

func (m *memoryCostTracker) Summary(ctx context.Context) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary, nil
}

// Record prices a model call and records it. Missing pricing records the tokens at zero cost.
func Record(ctx context.Context, tracker CostTracker, pricing map[string]config.PricingInfo, event CostEvent) {
	if tracker == nil || event.InputTokens+event.OutputTokens == 0 {
		return
	}
	priceInfo, ok := pricing[event.Model]
	if !ok {
		log.Warnf("Pricing info not found for model '%s'. Recording %s usage at zero cost.", event.Model, event.Operation)
	} else {
		event.AmountUSD = float64(event.InputTokens)*priceInfo.InputPerToken +
			float64(event.OutputTokens)*priceInfo.OutputPerToken
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := tracker.RecordCost(ctx, event); err != nil {
		log.Errorf("Failed to record AI usage for %s: %v", event.Operation, err)
		return
	}
	log.Debugf("Recorded AI usage: Provider=%s, Service=%s, Model=%s, InputTokens=%d, OutputTokens=%d, Cost=%.8f",
		event.Provider, event.Operation, event.Model, event.InputTokens, event.OutputTokens, event.AmountUSD)
}
