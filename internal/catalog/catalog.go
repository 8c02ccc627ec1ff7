// Package catalog loads the curated list of portfolio projects.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"folio/internal/models"
)

//go:embed default.yaml
var defaultCatalog []byte

// Project is one curated entry as written in the catalog file. Category holds a
// single pre-assigned category; Categories may list several.
type Project struct {
	ID           string   `yaml:"id"`
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	Technologies []string `yaml:"technologies"`
	Link         string   `yaml:"link"`
	ImageURL     string   `yaml:"image_url"`
	Readme       string   `yaml:"readme"`
	Category     string   `yaml:"category"`
	Categories   []string `yaml:"categories"`
}

// File is the catalog document.
type File struct {
	Projects []Project `yaml:"projects"`
}

// Load reads the catalog at path. An empty path returns the embedded catalog.
func Load(path string) ([]models.CatalogEntry, error) {
	if path == "" {
		return Parse(bytes.NewReader(defaultCatalog))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()
	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return entries, nil
}

// Default returns the embedded catalog.
func Default() []models.CatalogEntry {
	entries, err := Parse(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return entries
}

// Parse decodes and validates a catalog document.
func Parse(r io.Reader) ([]models.CatalogEntry, error) {
	var doc File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return doc.ToCatalogEntries()
}

// ToCatalogEntries validates the document and normalises it into entries.
func (f File) ToCatalogEntries() ([]models.CatalogEntry, error) {
	entries := make([]models.CatalogEntry, 0, len(f.Projects))
	seen := make(map[string]bool, len(f.Projects))
	for i, p := range f.Projects {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return nil, fmt.Errorf("project #%d: id is required", i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("project %q: duplicate id", id)
		}
		seen[id] = true
		if strings.TrimSpace(p.Title) == "" {
			return nil, fmt.Errorf("project %q: title is required", id)
		}

		cats, err := parseCategories(p)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", id, err)
		}

		entries = append(entries, models.CatalogEntry{
			ID:            id,
			Title:         p.Title,
			Description:   optional(p.Description),
			Technologies:  append([]string{}, p.Technologies...),
			Link:          optional(p.Link),
			ImageURL:      optional(p.ImageURL),
			Documentation: optional(p.Readme),
			Categories:    cats,
			Origin:        models.OriginManual,
		})
	}
	return entries, nil
}

func parseCategories(p Project) ([]models.Category, error) {
	raw := p.Categories
	if p.Category != "" {
		raw = append([]string{p.Category}, raw...)
	}
	var out []models.Category
	for _, r := range raw {
		c, err := models.ParseCategory(r)
		if err != nil {
			return nil, err
		}
		dup := false
		for _, have := range out {
			dup = dup || have == c
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
