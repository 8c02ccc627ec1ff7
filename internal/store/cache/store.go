package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"folio/internal/models"
)

// Key is the single well-known key the collection is stored under.
const Key = "portfolio_projects_cache"

// DefaultTTL is the age after which a record is treated as absent.
const DefaultTTL = 6 * time.Hour

// Store persists the merged collection with a timestamp. It is advisory:
// every failure is logged and reported as "no cache".
type Store struct {
	backend Backend
	ttl     time.Duration
	key     string
	now     func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithKey stores the record under a different key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func NewStore(backend Backend, ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{backend: backend, ttl: ttl, key: Key, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the cached collection, or nil when it is absent, unreadable or
// older than the TTL. Expired and corrupt records are removed.
func (s *Store) Load(ctx context.Context) *models.CachedCollection {
	logger := log.WithField("cache_key", s.key)

	data, err := s.backend.Read(ctx, s.key)
	if err != nil {
		if !errors.Is(err, models.ErrCacheMiss) {
			logger.WithError(err).Warn("Failed to read project cache")
		}
		return nil
	}

	var record models.CachedCollection
	if err := json.Unmarshal(data, &record); err != nil {
		logger.WithError(err).Warn("Discarding undecodable project cache")
		s.discard(ctx, logger)
		return nil
	}
	if record.Expired(s.now(), s.ttl) {
		logger.WithField("age", record.Age(s.now()).Round(time.Second)).Info("Project cache expired")
		s.discard(ctx, logger)
		return nil
	}

	for i := range record.Entries {
		record.Entries[i].IsClassifying = false
	}
	logger.WithField("entries", len(record.Entries)).Debug("Loaded project cache")
	return &record
}

// Save writes entries with the current timestamp. Liveness flags are stripped.
func (s *Store) Save(ctx context.Context, entries []models.CatalogEntry) {
	logger := log.WithField("cache_key", s.key)

	record := models.CachedCollection{
		Timestamp: s.now().UnixMilli(),
		Entries:   models.CloneEntries(entries),
	}
	if record.Entries == nil {
		record.Entries = []models.CatalogEntry{}
	}
	for i := range record.Entries {
		record.Entries[i].IsClassifying = false
	}

	data, err := json.Marshal(record)
	if err != nil {
		logger.WithError(err).Error("Failed to encode project cache")
		return
	}
	if err := s.backend.Write(ctx, s.key, data); err != nil {
		logger.WithError(err).Warn("Failed to write project cache")
		return
	}
	logger.WithField("entries", len(record.Entries)).Debug("Saved project cache")
}

// Clear removes the record.
func (s *Store) Clear(ctx context.Context) error {
	return s.backend.Delete(ctx, s.key)
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) discard(ctx context.Context, logger *log.Entry) {
	if err := s.backend.Delete(ctx, s.key); err != nil {
		logger.WithError(err).Debug("Failed to remove stale project cache")
	}
}
