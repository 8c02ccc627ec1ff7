package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/models"
)

func TestDefault(t *testing.T) {
	entries := Default()
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, models.OriginManual, e.Origin)
	}
	featured := 0
	for _, e := range entries {
		if e.HasCategory(models.CategoryFeatured) {
			featured++
		}
	}
	assert.Positive(t, featured)
}

func TestParse(t *testing.T) {
	doc := `
projects:
  - id: m1
    title: X
    category: Featured
  - id: m2
    title: Y
    description: "  "
    technologies: [Go]
    link: https://example.com/y
    categories: [machine learning, Web/Cloud, WebCloud]
  - id: m3
    title: Z
    readme: "# Z"
`
	entries, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []models.Category{models.CategoryFeatured}, entries[0].Categories)
	assert.Nil(t, entries[1].Description)
	require.NotNil(t, entries[1].Link)
	assert.Equal(t, []models.Category{models.CategoryMachineLearning, models.CategoryWebCloud}, entries[1].Categories)
	assert.Empty(t, entries[2].Categories)
	assert.NotNil(t, entries[2].Technologies)
	require.NotNil(t, entries[2].Documentation)
	assert.Equal(t, "# Z", *entries[2].Documentation)
}

func TestParse_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "missing id", doc: "projects:\n  - title: X\n", wantErr: "id is required"},
		{name: "missing title", doc: "projects:\n  - id: a\n", wantErr: "title is required"},
		{name: "duplicate id", doc: "projects:\n  - {id: a, title: X}\n  - {id: a, title: Y}\n", wantErr: "duplicate id"},
		{name: "unknown category", doc: "projects:\n  - {id: a, title: X, category: Blockchain}\n", wantErr: "invalid category"},
		{name: "unknown field", doc: "projects:\n  - {id: a, title: X, stars: 3}\n", wantErr: "decode catalog"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	entries, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoad(t *testing.T) {
	entries, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), entries)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.yaml")
	require.NoError(t, os.WriteFile(path, []byte("projects:\n  - {id: a, title: A}\n"), 0o644))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("projects:\n  - {id: a, title: A}\n  - {id: b, title: B}\n"), 0o644))

	select {
	case r := <-w.Reloads:
		require.NoError(t, r.Err)
		require.Len(t, r.Entries, 2)
		assert.Equal(t, "b", r.Entries[1].ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after editing the catalog")
	}

	// Other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	select {
	case r := <-w.Reloads:
		t.Fatalf("unexpected reload: %+v", r)
	case <-time.After(3 * debounce):
	}
}
