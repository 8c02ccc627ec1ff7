package services

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/models"
)

func featuredManual() []models.CatalogEntry {
	return []models.CatalogEntry{
		{ID: "m1", Title: "X", Categories: []models.Category{models.CategoryFeatured}},
	}
}

func freshG1() []models.CatalogEntry {
	return []models.CatalogEntry{
		models.Repository{ID: 1, Name: "Y", Description: strPtr("desc"), Language: strPtr("Python")}.ToCatalogEntry(),
	}
}

func TestMerge_ManualAndFresh(t *testing.T) {
	fresh := []models.CatalogEntry{
		models.Repository{ID: 7, Name: "Y", Description: strPtr("desc"), Language: strPtr("Python")}.ToCatalogEntry(),
	}

	res := Merge(featuredManual(), nil, fresh)

	require.Len(t, res.Entries, 2)
	m1, _ := find(res.Entries, "m1")
	assert.False(t, m1.IsClassifying)
	assert.Equal(t, []models.Category{models.CategoryFeatured}, m1.Categories)
	assert.Equal(t, models.OriginManual, m1.Origin)

	g, ok := find(res.Entries, "7")
	require.True(t, ok)
	assert.True(t, g.IsClassifying)
	assert.Empty(t, g.Categories)
	assert.Equal(t, []string{"Python"}, g.Technologies)
	assert.Equal(t, []string{"7"}, res.NeedsClassificationIDs())
}

func TestMerge_ManualPrecheck(t *testing.T) {
	manual := []models.CatalogEntry{
		{ID: "featured", Title: "A", Categories: []models.Category{models.CategoryFeatured}},
		{ID: "preassigned", Title: "B", Categories: []models.Category{models.CategoryAI}},
		{ID: "bare", Title: "C"},
	}

	res := Merge(manual, nil, nil)

	assert.Equal(t, []string{"featured", "preassigned", "bare"}, ids(res.Entries))
	assert.Equal(t, []string{"preassigned", "bare"}, res.NeedsClassificationIDs())
	pre, _ := find(res.Entries, "preassigned")
	assert.True(t, pre.IsClassifying)
	assert.Equal(t, []models.Category{models.CategoryAI}, pre.Categories, "categories are kept until the classifier answers")
}

func TestMerge_CacheSeeded(t *testing.T) {
	stale := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cached := &models.CachedCollection{
		Timestamp: time.Now().UnixMilli(),
		Entries: []models.CatalogEntry{
			{ID: "m1", Title: "X", Categories: []models.Category{models.CategoryFeatured}, Origin: models.OriginManual},
			{ID: "1", Title: "old-name", Categories: []models.Category{models.CategoryAI}, UpdatedAt: &stale, Origin: models.OriginDiscovered},
			{ID: "2", Title: "vanished", Categories: []models.Category{models.CategoryRobotics}},
			{ID: "3", Title: "never-classified"},
			{ID: "4", Title: "was-in-flight", IsClassifying: true, Categories: []models.Category{models.CategoryOther}},
		},
	}
	manual := append(featuredManual(), models.CatalogEntry{ID: "m2", Title: "New manual"})

	res := Merge(manual, cached, freshG1())

	assert.Equal(t, []string{"m1", "1", "2", "3", "4", "m2"}, ids(res.Entries))

	g1, _ := find(res.Entries, "1")
	assert.Equal(t, "Y", g1.Title, "fresh wins for display fields")
	assert.Equal(t, []models.Category{models.CategoryAI}, g1.Categories, "cache wins for categories")
	assert.False(t, g1.IsClassifying)
	require.NotNil(t, g1.Description)
	assert.Equal(t, "desc", *g1.Description)

	vanished, _ := find(res.Entries, "2")
	assert.False(t, vanished.IsClassifying, "entries the fetch no longer returns are retained")

	inFlight, _ := find(res.Entries, "4")
	assert.False(t, inFlight.IsClassifying, "liveness flags from the record are reset")

	assert.Equal(t, []string{"3", "m2"}, res.NeedsClassificationIDs())
}

func TestMerge_FreshFillsEmptyCategories(t *testing.T) {
	cached := &models.CachedCollection{Entries: []models.CatalogEntry{{ID: "1", Title: "Y"}}}

	res := Merge(nil, cached, freshG1())

	require.Len(t, res.Entries, 1)
	assert.True(t, res.Entries[0].IsClassifying)
	assert.Equal(t, []string{"1"}, res.NeedsClassificationIDs(), "flagged once even though seen twice")
}

func TestMerge_NoDuplicateIDs(t *testing.T) {
	fresh := append(freshG1(), freshG1()...)
	fresh = append(fresh, models.CatalogEntry{ID: "m1", Title: "manual as repo"})

	res := Merge(featuredManual(), nil, fresh)

	assert.Equal(t, []string{"m1", "1"}, ids(res.Entries))
	assert.Equal(t, []string{"1"}, res.NeedsClassificationIDs())
	m1, _ := find(res.Entries, "m1")
	assert.Equal(t, []models.Category{models.CategoryFeatured}, m1.Categories)
}

func TestMerge_Idempotent(t *testing.T) {
	manual := append(featuredManual(), models.CatalogEntry{ID: "m2", Title: "Z"})
	fresh := append(freshG1(), models.Repository{ID: 2, Name: "W"}.ToCatalogEntry())

	once := Merge(manual, nil, fresh)
	twice := Reconcile(once.Entries, manual, fresh)

	if diff := cmp.Diff(once.Entries, twice.Entries); diff != "" {
		t.Errorf("second merge changed the collection (-once +twice):\n%s", diff)
	}
	assert.Equal(t, once.NeedsClassificationIDs(), twice.NeedsClassificationIDs())

	again := Merge(manual, nil, fresh)
	if diff := cmp.Diff(once, again); diff != "" {
		t.Errorf("Merge is not deterministic (-first +second):\n%s", diff)
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	manual := featuredManual()
	fresh := freshG1()
	cached := &models.CachedCollection{Entries: []models.CatalogEntry{{ID: "1", Title: "old", IsClassifying: true}}}
	manualCopy := models.CloneEntries(manual)
	freshCopy := models.CloneEntries(fresh)
	cachedCopy := models.CloneEntries(cached.Entries)

	res := Merge(manual, cached, fresh)
	res.Entries[0].Title = "mutated"

	assert.Empty(t, cmp.Diff(manualCopy, manual))
	assert.Empty(t, cmp.Diff(freshCopy, fresh))
	assert.Empty(t, cmp.Diff(cachedCopy, cached.Entries))
}
