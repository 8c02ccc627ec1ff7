package categorizer

import (
	"context"

	"folio/internal/models"
)

// maxExcerptRunes caps the documentation text sent to the model.
const maxExcerptRunes = 2000

// truncationMarker is appended to an excerpt that was cut.
const truncationMarker = "..."

// CategorizationRequest is the model input derived from a catalog entry.
type CategorizationRequest struct {
	Name                 string   `json:"name"`
	Description          *string  `json:"description"`
	Technologies         []string `json:"technologies"`
	Link                 *string  `json:"link"`
	DocumentationExcerpt *string  `json:"documentationExcerpt"`
}

// CategorizationResult holds the validated categories.
type CategorizationResult struct {
	Categories []models.Category
}

// ProjectCategorizer assigns classifiable categories to a project.
type ProjectCategorizer interface {
	Categorize(ctx context.Context, req CategorizationRequest) (CategorizationResult, error)
}

// NewRequest derives the model input from an entry.
func NewRequest(entry models.CatalogEntry) CategorizationRequest {
	req := CategorizationRequest{
		Name:         entry.Title,
		Technologies: append([]string{}, entry.Technologies...),
	}
	if entry.Description != nil && *entry.Description != "" {
		d := *entry.Description
		req.Description = &d
	}
	if entry.Link != nil && *entry.Link != "" {
		l := *entry.Link
		req.Link = &l
	}
	if entry.Documentation != nil && *entry.Documentation != "" {
		excerpt := Excerpt(*entry.Documentation)
		req.DocumentationExcerpt = &excerpt
	}
	return req
}

// Excerpt returns at most maxExcerptRunes runes of text, marking truncation.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= maxExcerptRunes {
		return text
	}
	return string(runes[:maxExcerptRunes]) + truncationMarker
}
