package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"folio/internal/models"
)

// ProjectService owns the observable project collection and runs load cycles:
// cache fast path, source fetch, merge, concurrent classification, cache save.
// All mutation of the collection goes through one mutex.
type ProjectService struct {
	deps ProjectDeps

	mu          sync.Mutex
	state       models.State
	manual      []models.CatalogEntry
	running     bool
	loaded      bool            // a cycle has completed in this process
	followUp    context.Context // set when a cycle must run again once the current one is done
	subscribers map[int]chan models.State
	nextSubID   int
}

func NewProjectService(deps ProjectDeps) *ProjectService {
	s := &ProjectService{
		deps:        deps,
		manual:      models.CloneEntries(deps.Manual),
		subscribers: make(map[int]chan models.State),
	}
	s.state = models.State{
		Phase:      models.PhaseIdle,
		Collection: Seed(s.manual, nil),
	}
	// Nothing is in flight before the first cycle.
	for i := range s.state.Collection {
		s.state.Collection[i].IsClassifying = false
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *ProjectService) Snapshot() models.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Running reports whether a load cycle is in progress.
func (s *ProjectService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Subscribe registers an observer. The channel holds at most one pending state;
// a slow reader skips intermediate states and always sees the latest one.
// The current state is delivered immediately. cancel closes the channel.
func (s *ProjectService) Subscribe() (<-chan models.State, func()) {
	ch := make(chan models.State, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	ch <- s.state.Clone()
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// publishLocked delivers the current state to every subscriber. Caller holds mu.
func (s *ProjectService) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.state.Clone()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Replace the stale pending state.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// SetManualCatalog replaces the curated entries used by subsequent cycles.
func (s *ProjectService) SetManualCatalog(entries []models.CatalogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual = models.CloneEntries(entries)
}

// ApplyCatalog replaces the curated entries and starts a cycle that applies
// them. When a cycle is already running, one follow-up cycle starts as soon as
// it is done; further edits before then share that follow-up.
func (s *ProjectService) ApplyCatalog(ctx context.Context, entries []models.CatalogEntry) error {
	s.mu.Lock()
	s.manual = models.CloneEntries(entries)
	if s.running {
		s.followUp = ctx
		s.mu.Unlock()
		log.Info("Catalog changed during a load cycle; a follow-up cycle is queued")
		return nil
	}
	s.mu.Unlock()

	_, err := s.LoadAsync(ctx)
	if errors.Is(err, models.ErrLoadInProgress) {
		// The cycle that won the race read the new catalog.
		return nil
	}
	return err
}

// Wait blocks until no cycle is running, including queued follow-ups.
func (s *ProjectService) Wait(ctx context.Context) error {
	updates, cancel := s.Subscribe()
	defer cancel()
	for s.Running() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-updates:
		}
	}
	return nil
}

// UpdateCategories assigns categories to one entry and clears its pending flag.
func (s *ProjectService) UpdateCategories(id string, categories []models.Category) error {
	if len(categories) == 0 {
		return fmt.Errorf("update %q: %w: empty category set", id, models.ErrInvalidCategory)
	}
	for _, c := range categories {
		if !c.Valid() {
			return fmt.Errorf("update %q: %w", id, &models.InvalidCategoryError{Value: string(c)})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.updateLocked(id, categories) {
		return fmt.Errorf("update %q: %w", id, models.ErrEntryNotFound)
	}
	s.publishLocked()
	return nil
}

func (s *ProjectService) updateLocked(id string, categories []models.Category) bool {
	for i := range s.state.Collection {
		if s.state.Collection[i].ID == id {
			s.state.Collection[i].Categories = append([]models.Category(nil), categories...)
			s.state.Collection[i].IsClassifying = false
			return true
		}
	}
	return false
}

// DismissBanner removes the banner of the given kind.
func (s *ProjectService) DismissBanner(kind models.BannerKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeBannerLocked(kind)
	s.publishLocked()
}

func (s *ProjectService) removeBannerLocked(kind models.BannerKind) {
	kept := s.state.Banners[:0]
	for _, b := range s.state.Banners {
		if b.Kind != kind {
			kept = append(kept, b)
		}
	}
	s.state.Banners = kept
	if len(kept) == 0 {
		s.state.Banners = nil
	}
	if s.state.LastError != nil && s.state.LastError.Kind == kind {
		s.state.LastError = nil
		if n := len(s.state.Banners); n > 0 {
			b := s.state.Banners[n-1]
			s.state.LastError = &b
		}
	}
}

func (s *ProjectService) setBannerLocked(b models.Banner) {
	replaced := false
	for i := range s.state.Banners {
		if s.state.Banners[i].Kind == b.Kind {
			s.state.Banners[i] = b
			replaced = true
		}
	}
	if !replaced {
		s.state.Banners = append(s.state.Banners, b)
	}
	last := b
	s.state.LastError = &last
}

// Load runs one load cycle to completion. It returns ErrLoadInProgress when a
// cycle is already running; every other failure degrades and is reported
// through the state banners.
func (s *ProjectService) Load(ctx context.Context) error {
	cycleID, err := s.begin()
	if err != nil {
		return err
	}
	s.run(ctx, cycleID)
	return nil
}

// LoadAsync starts a cycle in the background. The returned channel is closed
// when the cycle reaches Done.
func (s *ProjectService) LoadAsync(ctx context.Context) (<-chan struct{}, error) {
	cycleID, err := s.begin()
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run(ctx, cycleID)
	}()
	return done, nil
}

func (s *ProjectService) begin() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return "", models.ErrLoadInProgress
	}
	return s.beginLocked(), nil
}

func (s *ProjectService) beginLocked() string {
	s.running = true
	cycleID := uuid.NewString()
	s.state.CycleID = cycleID
	s.state.Phase = models.PhaseFetchingSource
	s.state.IsLoadingSource = true
	s.state.IsClassifying = false
	s.state.Progress = models.Progress{}
	s.publishLocked()
	return cycleID
}

func (s *ProjectService) run(ctx context.Context, cycleID string) {
	logger := log.WithField("cycle_id", cycleID)
	logger.Info("Project load cycle started")

	// Fast path: a valid cache seeds the visible collection before the fetch.
	var cached *models.CachedCollection
	if s.deps.Cache != nil {
		cached = s.deps.Cache.Load(ctx)
	}
	s.mu.Lock()
	manual := models.CloneEntries(s.manual)
	if cached != nil {
		logger.WithField("entries", len(cached.Entries)).Info("Seeding collection from cache")
		s.state.Collection = Seed(manual, cached)
		s.publishLocked()
	}
	s.mu.Unlock()

	fresh, fetchErr := s.fetch(ctx, logger)

	s.mu.Lock()
	s.state.Phase = models.PhaseMerging
	s.state.IsLoadingSource = false
	if fetchErr != nil {
		s.setBannerLocked(models.Banner{
			Kind:    models.BannerSourceUnavailable,
			Message: sourceBannerMessage(fetchErr),
		})
	} else {
		s.removeBannerLocked(models.BannerSourceUnavailable)
	}

	var working []models.CatalogEntry
	switch {
	case cached != nil:
		working = s.state.Collection
	case s.loaded:
		// No valid cache, but the previous cycle's collection is still in memory.
		working = Seed(manual, &models.CachedCollection{Entries: s.state.Collection})
	default:
		working = Seed(manual, nil)
	}
	result := Reconcile(working, manual, fresh)
	s.state.Collection = result.Entries
	pending := result.NeedsClassification
	logger.WithFields(log.Fields{
		"entries": len(result.Entries),
		"pending": len(pending),
	}).Info("Merged project collection")

	if len(pending) > 0 {
		s.state.Phase = models.PhaseClassifying
		s.state.IsClassifying = true
		s.state.Progress = models.Progress{Total: len(pending)}
		s.removeBannerLocked(models.BannerClassificationFailed)
	}
	s.publishLocked()
	s.mu.Unlock()

	if len(pending) > 0 {
		s.classifyAll(ctx, logger, pending)
	}

	s.finish(ctx, logger, len(pending) > 0, cached != nil, fetchErr == nil)
}

func (s *ProjectService) fetch(ctx context.Context, logger *log.Entry) ([]models.CatalogEntry, error) {
	if s.deps.Source == nil {
		return nil, nil
	}
	repos, err := s.deps.Source.FetchRepositories(ctx, s.deps.Account)
	if err != nil {
		logger.WithError(err).Warn("Repository source unavailable; continuing with known projects")
		return nil, err
	}
	fresh := make([]models.CatalogEntry, 0, len(repos))
	for _, r := range repos {
		fresh = append(fresh, r.ToCatalogEntry())
	}
	return fresh, nil
}

func (s *ProjectService) classifyAll(ctx context.Context, logger *log.Entry, pending []models.CatalogEntry) {
	var g errgroup.Group
	if n := s.deps.MaxConcurrentClassifications; n > 0 {
		g.SetLimit(n)
	}
	for _, entry := range pending {
		entry := entry
		g.Go(func() error {
			c := s.deps.Classifier.Classify(ctx, entry)
			if c.Failed() {
				logger.WithError(c.Err).WithField("entry_id", entry.ID).Warn("Classification failed, using Other")
			}
			s.resolve(entry.ID, c)
			return nil
		})
	}
	_ = g.Wait()
}

// resolve applies one completed classification: one state transition. An entry
// curated while its call was in flight keeps the curated categories.
func (s *ProjectService) resolve(id string, c Classification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Progress.Done++
	if !s.pendingLocked(id) {
		log.WithField("entry_id", id).Info("Entry curated during classification; result discarded")
		s.publishLocked()
		return
	}
	s.updateLocked(id, c.Categories)
	if c.Failed() {
		count := 1
		if b, ok := s.state.Banner(models.BannerClassificationFailed); ok {
			count = b.Count + 1
		}
		s.setBannerLocked(models.Banner{
			Kind:    models.BannerClassificationFailed,
			Message: classificationBannerMessage(count, c.Err),
			Count:   count,
		})
	}
	s.publishLocked()
}

func (s *ProjectService) pendingLocked(id string) bool {
	for _, e := range s.state.Collection {
		if e.ID == id {
			return e.IsClassifying
		}
	}
	return false
}

func (s *ProjectService) finish(ctx context.Context, logger *log.Entry, classified, fromCache, fetched bool) {
	s.mu.Lock()
	s.state.Phase = models.PhaseDone
	s.state.IsClassifying = false
	s.state.IsLoadingSource = false
	entries := models.CloneEntries(s.state.Collection)
	s.mu.Unlock()

	switch {
	case ctx.Err() != nil:
		// Interrupted classifications resolved to Other; keep the stored record.
		logger.WithError(ctx.Err()).Warn("Load cycle cancelled; cache not saved")
	case s.deps.Cache != nil && (classified || !fromCache || fetched):
		s.deps.Cache.Save(ctx, entries)
	}

	s.mu.Lock()
	s.loaded = true
	next := s.followUp
	s.followUp = nil
	if next != nil && next.Err() == nil {
		s.publishLocked()
		cycleID := s.beginLocked()
		s.mu.Unlock()
		logger.WithField("next_cycle_id", cycleID).Info("Project load cycle done; starting follow-up cycle")
		go s.run(next, cycleID)
		return
	}
	s.running = false
	s.publishLocked()
	s.mu.Unlock()
	logger.Info("Project load cycle done")
}

func sourceBannerMessage(err error) string {
	if errors.Is(err, models.ErrQuotaExhausted) {
		return "Could not fetch latest projects from GitHub: API rate limit reached. Showing known projects."
	}
	return "Could not fetch latest projects from GitHub. Showing known projects."
}

func classificationBannerMessage(count int, err error) string {
	if errors.Is(err, models.ErrClassifierUnavailable) {
		return fmt.Sprintf("%d project(s) could not be categorized: no classifier configured.", count)
	}
	return fmt.Sprintf("%d project(s) could not be categorized and are listed under Other.", count)
}
