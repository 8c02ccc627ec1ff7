package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"folio/internal/models"
	categorizer "folio/pkg/categorizer"
)

// Classification is the resolved outcome of one classification call. Categories
// is never empty; Err is set when the call failed and Categories fell back to Other.
type Classification struct {
	Categories []models.Category
	Err        error
}

// Failed reports whether the fallback was applied.
func (c Classification) Failed() bool {
	return c.Err != nil
}

var fallbackCategories = []models.Category{models.CategoryOther}

// ClassificationService turns catalog entries into category sets. It never fails:
// any error degrades to Other.
type ClassificationService struct {
	Categorizer categorizer.ProjectCategorizer
}

func NewClassificationService(cat categorizer.ProjectCategorizer) *ClassificationService {
	return &ClassificationService{Categorizer: cat}
}

// Enabled reports whether a model backend is configured.
func (s *ClassificationService) Enabled() bool {
	return s != nil && s.Categorizer != nil
}

func (s *ClassificationService) Classify(ctx context.Context, entry models.CatalogEntry) Classification {
	if !s.Enabled() {
		return fallback(fmt.Errorf("classify %q: %w: %w", entry.ID, models.ErrClassificationFailed, models.ErrClassifierUnavailable))
	}

	res, err := s.Categorizer.Categorize(ctx, categorizer.NewRequest(entry))
	if err != nil {
		return fallback(fmt.Errorf("classify %q: %w: %w", entry.ID, models.ErrClassificationFailed, err))
	}

	cats := sanitizeCategories(res.Categories)
	if len(cats) == 0 {
		return fallback(fmt.Errorf("classify %q: %w: no usable categories in %v", entry.ID, models.ErrClassificationFailed, res.Categories))
	}
	return Classification{Categories: cats}
}

func fallback(err error) Classification {
	log.WithError(err).Debug("Classification degraded to Other")
	return Classification{Categories: append([]models.Category(nil), fallbackCategories...), Err: err}
}

// sanitizeCategories keeps classifiable labels only, first occurrence wins.
func sanitizeCategories(in []models.Category) []models.Category {
	out := make([]models.Category, 0, len(in))
	seen := make(map[models.Category]bool, len(in))
	for _, c := range in {
		if !c.Classifiable() || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
