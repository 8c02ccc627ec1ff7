package clix

import (
	"fmt"

	"github.com/spf13/pflag"

	"folio/internal/models"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads --limit and --offset. A non-positive limit means no limit.
func ParsePagination(flags *pflag.FlagSet) (PaginationParams, error) {
	limit, _ := flags.GetInt("limit")
	offset, _ := flags.GetInt("offset")
	if offset < 0 {
		return PaginationParams{}, fmt.Errorf("--offset must not be negative (got %d)", offset)
	}
	if limit < 0 {
		limit = 0
	}
	return PaginationParams{Limit: limit, Offset: offset}, nil
}

// Page slices entries according to p.
func (p PaginationParams) Page(entries []models.CatalogEntry) []models.CatalogEntry {
	if p.Offset >= len(entries) {
		return nil
	}
	entries = entries[p.Offset:]
	if p.Limit > 0 && p.Limit < len(entries) {
		entries = entries[:p.Limit]
	}
	return entries
}

// ParseCategory reads a category flag. ok is false when the flag is empty.
func ParseCategory(flags *pflag.FlagSet, name string) (cat models.Category, ok bool, err error) {
	raw, _ := flags.GetString(name)
	if raw == "" {
		return "", false, nil
	}
	cat, err = models.ParseCategory(raw)
	if err != nil {
		return "", false, fmt.Errorf("--%s: %w", name, err)
	}
	return cat, true, nil
}
