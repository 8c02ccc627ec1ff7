package services

import (
	"folio/internal/models"
)

// MergeResult is the reconciled collection plus the entries that still need a
// classification call, in the order they were flagged.
type MergeResult struct {
	Entries             []models.CatalogEntry
	NeedsClassification []models.CatalogEntry
}

// NeedsClassificationIDs returns the ids of the pending entries.
func (r MergeResult) NeedsClassificationIDs() []string {
	ids := make([]string, len(r.NeedsClassification))
	for i, e := range r.NeedsClassification {
		ids[i] = e.ID
	}
	return ids
}

// mergeBuilder keeps the working collection indexed by id.
type mergeBuilder struct {
	entries []models.CatalogEntry
	index   map[string]int
	flagged map[string]bool
	order   []string
}

func newMergeBuilder(capacity int) *mergeBuilder {
	return &mergeBuilder{
		entries: make([]models.CatalogEntry, 0, capacity),
		index:   make(map[string]int, capacity),
		flagged: make(map[string]bool),
	}
}

// add appends e unless its id is already present, flagging it when pending.
func (b *mergeBuilder) add(e models.CatalogEntry) {
	if _, dup := b.index[e.ID]; dup {
		return
	}
	b.index[e.ID] = len(b.entries)
	b.entries = append(b.entries, e)
	if e.IsClassifying {
		b.flag(e.ID)
	}
}

func (b *mergeBuilder) flag(id string) {
	if b.flagged[id] {
		return
	}
	b.flagged[id] = true
	b.order = append(b.order, id)
}

func (b *mergeBuilder) result() MergeResult {
	result := MergeResult{Entries: b.entries}
	if len(b.order) > 0 {
		result.NeedsClassification = make([]models.CatalogEntry, 0, len(b.order))
		for _, id := range b.order {
			result.NeedsClassification = append(result.NeedsClassification, b.entries[b.index[id]].Clone())
		}
	}
	return result
}

// manualEntry prepares a curated entry. Only entries curated as Featured are
// exempt from classification.
func manualEntry(m models.CatalogEntry) models.CatalogEntry {
	e := m.Clone()
	e.Origin = models.OriginManual
	e.IsClassifying = !e.IsClassified() || !e.HasCategory(models.CategoryFeatured)
	return e
}

// mergeFresh overwrites display fields and keeps the stored categories.
func mergeFresh(existing *models.CatalogEntry, fresh models.CatalogEntry) {
	f := fresh.Clone()
	existing.Title = f.Title
	existing.Description = f.Description
	existing.Technologies = f.Technologies
	existing.Link = f.Link
	existing.Documentation = f.Documentation
	existing.UpdatedAt = f.UpdatedAt
	existing.Stars = f.Stars
	existing.Forks = f.Forks
}

// Seed builds the initial working collection: the cached entries when a valid
// record is given (with liveness flags recomputed), otherwise the manual catalog.
func Seed(manual []models.CatalogEntry, cached *models.CachedCollection) []models.CatalogEntry {
	if cached == nil {
		out := make([]models.CatalogEntry, 0, len(manual))
		for _, m := range manual {
			out = append(out, manualEntry(m))
		}
		return out
	}
	out := make([]models.CatalogEntry, 0, len(cached.Entries))
	for _, c := range cached.Entries {
		e := c.Clone()
		e.IsClassifying = !e.IsClassified()
		out = append(out, e)
	}
	return out
}

// Merge reconciles the manual catalog, an optional unexpired cached collection
// and a fresh source fetch into one collection with unique ids.
func Merge(manual []models.CatalogEntry, cached *models.CachedCollection, fresh []models.CatalogEntry) MergeResult {
	return Reconcile(Seed(manual, cached), manual, fresh)
}

// Reconcile merges fresh data and missing manual entries into a working
// collection. Fresh data wins for display fields; stored categories win unless
// empty. Entries absent from fresh are retained. Pending entries of the working
// set stay pending, so reconciling a result again with the same inputs yields
// the same collection and the same pending list. Inputs are not modified.
func Reconcile(working, manual, fresh []models.CatalogEntry) MergeResult {
	b := newMergeBuilder(len(working) + len(fresh))

	for _, w := range working {
		b.add(w.Clone())
	}

	for _, f := range fresh {
		idx, ok := b.index[f.ID]
		if !ok {
			e := f.Clone()
			e.Categories = nil
			if e.Origin == "" {
				e.Origin = models.OriginDiscovered
			}
			e.IsClassifying = true
			b.add(e)
			continue
		}
		existing := &b.entries[idx]
		mergeFresh(existing, f)
		if !existing.IsClassified() || existing.IsClassifying {
			existing.IsClassifying = true
			b.flag(existing.ID)
		}
	}

	// Manual entries the seed did not hold, e.g. added since the cache was written.
	for _, m := range manual {
		if _, ok := b.index[m.ID]; !ok {
			b.add(manualEntry(m))
		}
	}

	return b.result()
}
