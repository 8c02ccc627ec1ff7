package services

import (
	"sort"

	"folio/internal/models"
)

// ByCategory returns the entries shown under a category tab, in collection order.
//
// The Featured tab holds entries curated as Featured. Every other tab holds
// entries carrying that category and not Featured, so a Featured entry appears
// under Featured only. Settled entries without categories render under Other;
// entries still awaiting their first classification appear in no tab.
func ByCategory(collection []models.CatalogEntry, category models.Category) []models.CatalogEntry {
	out := make([]models.CatalogEntry, 0)
	for _, e := range collection {
		cats := e.DisplayCategories()
		if !containsCategory(cats, category) {
			continue
		}
		if category != models.CategoryFeatured && containsCategory(cats, models.CategoryFeatured) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// CategoryCounts returns the number of entries each tab would show.
func CategoryCounts(collection []models.CatalogEntry) map[models.Category]int {
	counts := make(map[models.Category]int, len(models.AllCategories()))
	for _, c := range models.AllCategories() {
		counts[c] = len(ByCategory(collection, c))
	}
	return counts
}

// SortByStars orders discovered entries by descending popularity, keeping
// manual entries first in their curated order.
func SortByStars(collection []models.CatalogEntry) []models.CatalogEntry {
	out := models.CloneEntries(collection)
	sort.SliceStable(out, func(i, j int) bool {
		mi, mj := out[i].Origin == models.OriginManual, out[j].Origin == models.OriginManual
		if mi != mj {
			return mi
		}
		if mi {
			return false
		}
		return out[i].Stars > out[j].Stars
	})
	return out
}

func containsCategory(cats []models.Category, c models.Category) bool {
	for _, have := range cats {
		if have == c {
			return true
		}
	}
	return false
}
