package models

import (
	"strconv"
	"strings"
	"time"
)

// Category is one label from the closed project category enumeration.
type Category string

const (
	CategoryFeatured        Category = "Featured"
	CategoryAI              Category = "AI"
	CategoryMachineLearning Category = "MachineLearning"
	CategoryDataAnalysis    Category = "DataAnalysis"
	CategoryWebCloud        Category = "WebCloud"
	CategoryRobotics        Category = "Robotics"
	CategoryOther           Category = "Other"
)

// allCategories is the tab order used by the portfolio.
var allCategories = []Category{
	CategoryFeatured,
	CategoryAI,
	CategoryMachineLearning,
	CategoryDataAnalysis,
	CategoryWebCloud,
	CategoryRobotics,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryFeatured:        "Featured",
	CategoryAI:              "AI",
	CategoryMachineLearning: "Machine Learning",
	CategoryDataAnalysis:    "Data Analysis",
	CategoryWebCloud:        "Web/Cloud",
	CategoryRobotics:        "Robotics",
	CategoryOther:           "Other",
}

// AllCategories returns every category in tab order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ClassifiableCategories returns the categories an automated classifier may assign.
func ClassifiableCategories() []Category {
	return AllCategories()[1:]
}

// Label returns the human readable label, e.g. "Web/Cloud".
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Classifiable reports whether c may be produced by automated classification.
func (c Category) Classifiable() bool {
	return c.Valid() && c != CategoryFeatured
}

// ParseCategory accepts either the identifier ("WebCloud") or the label ("Web/Cloud"),
// case-insensitively and ignoring separators.
func ParseCategory(s string) (Category, error) {
	key := normalizeCategoryKey(s)
	if key == "" {
		return "", ErrInvalidCategory
	}
	for _, c := range allCategories {
		if normalizeCategoryKey(string(c)) == key {
			return c, nil
		}
	}
	return "", &InvalidCategoryError{Value: s}
}

func normalizeCategoryKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '/', '-', '_', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EntryOrigin records where a catalog entry was first seen.
type EntryOrigin string

const (
	OriginManual     EntryOrigin = "manual"
	OriginDiscovered EntryOrigin = "discovered"
)

// CatalogEntry is one project flowing through the pipeline. Manual entries and
// discovered repositories are normalised into this shape at the boundary.
type CatalogEntry struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Description   *string     `json:"description,omitempty"`
	Technologies  []string    `json:"technologies"`
	Link          *string     `json:"link,omitempty"`
	Documentation *string     `json:"documentation,omitempty"`
	ImageURL      *string     `json:"imageUrl,omitempty"`
	Categories    []Category  `json:"categories,omitempty"`
	IsClassifying bool        `json:"isClassifying,omitempty"`
	UpdatedAt     *time.Time  `json:"updatedAt,omitempty"`
	Stars         int         `json:"stars,omitempty"`
	Forks         int         `json:"forks,omitempty"`
	Origin        EntryOrigin `json:"origin,omitempty"`
}

// HasCategory reports whether the stored category set contains c.
func (e CatalogEntry) HasCategory(c Category) bool {
	for _, have := range e.Categories {
		if have == c {
			return true
		}
	}
	return false
}

// IsClassified reports whether the entry holds at least one category.
func (e CatalogEntry) IsClassified() bool {
	return len(e.Categories) > 0
}

// DisplayCategories is the category set used for rendering. A settled entry
// without categories is shown under Other; nothing is written back.
func (e CatalogEntry) DisplayCategories() []Category {
	if len(e.Categories) > 0 {
		return e.Categories
	}
	if e.IsClassifying {
		return nil
	}
	return []Category{CategoryOther}
}

// Clone returns a deep copy of the entry.
func (e CatalogEntry) Clone() CatalogEntry {
	out := e
	out.Description = cloneString(e.Description)
	out.Link = cloneString(e.Link)
	out.Documentation = cloneString(e.Documentation)
	out.ImageURL = cloneString(e.ImageURL)
	if e.Technologies != nil {
		out.Technologies = append(make([]string, 0, len(e.Technologies)), e.Technologies...)
	}
	if e.Categories != nil {
		out.Categories = append(make([]Category, 0, len(e.Categories)), e.Categories...)
	}
	if e.UpdatedAt != nil {
		t := *e.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// CloneEntries deep-copies a collection.
func CloneEntries(entries []CatalogEntry) []CatalogEntry {
	if entries == nil {
		return nil
	}
	out := make([]CatalogEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Repository is a repository record returned by the source API.
type Repository struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Language    *string   `json:"language"`
	HTMLURL     string    `json:"html_url"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	PushedAt    time.Time `json:"pushed_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Fork        bool      `json:"fork"`
	Readme      *string   `json:"-"`
}

// ToCatalogEntry normalises the repository into a pipeline entry.
func (r Repository) ToCatalogEntry() CatalogEntry {
	entry := CatalogEntry{
		ID:            strconv.FormatInt(r.ID, 10),
		Title:         r.Name,
		Description:   cloneString(r.Description),
		Technologies:  []string{},
		Documentation: cloneString(r.Readme),
		Stars:         r.Stars,
		Forks:         r.Forks,
		Origin:        OriginDiscovered,
	}
	if r.Description != nil && strings.TrimSpace(*r.Description) == "" {
		entry.Description = nil
	}
	if r.Language != nil && *r.Language != "" {
		entry.Technologies = append(entry.Technologies, *r.Language)
	}
	if r.HTMLURL != "" {
		link := r.HTMLURL
		entry.Link = &link
	}
	updated := r.PushedAt
	if r.UpdatedAt.After(updated) {
		updated = r.UpdatedAt
	}
	if !updated.IsZero() {
		entry.UpdatedAt = &updated
	}
	return entry
}

// CachedCollection is the persisted form of the merged, classified collection.
type CachedCollection struct {
	Timestamp int64          `json:"timestamp"` // unix milliseconds
	Entries   []CatalogEntry `json:"entries"`
}

// SavedAt returns the record timestamp as a time.
func (c CachedCollection) SavedAt() time.Time {
	return time.UnixMilli(c.Timestamp)
}

// Age is the time elapsed since the record was saved.
func (c CachedCollection) Age(now time.Time) time.Duration {
	return now.Sub(c.SavedAt())
}

// Expired reports whether the record is older than ttl at now.
func (c CachedCollection) Expired(now time.Time, ttl time.Duration) bool {
	return c.Age(now) >= ttl
}
