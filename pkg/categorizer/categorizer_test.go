package categorizer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/models"
)

func strPtr(s string) *string { return &s }

func TestExcerpt(t *testing.T) {
	short := strings.Repeat("a", maxExcerptRunes)
	assert.Equal(t, short, Excerpt(short))

	long := strings.Repeat("é", maxExcerptRunes+1)
	got := Excerpt(long)
	assert.True(t, strings.HasSuffix(got, truncationMarker))
	assert.Equal(t, maxExcerptRunes+len(truncationMarker), utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestNewRequest(t *testing.T) {
	entry := models.CatalogEntry{
		ID:            "42",
		Title:         "rover",
		Description:   strPtr(""),
		Technologies:  []string{"C++"},
		Link:          strPtr("https://github.com/me/rover"),
		Documentation: strPtr(strings.Repeat("x", 2500)),
	}

	req := NewRequest(entry)
	assert.Equal(t, "rover", req.Name)
	assert.Nil(t, req.Description, "empty description is reported as not available")
	assert.Equal(t, []string{"C++"}, req.Technologies)
	require.NotNil(t, req.Link)
	require.NotNil(t, req.DocumentationExcerpt)
	assert.Len(t, *req.DocumentationExcerpt, 2003)

	req = NewRequest(models.CatalogEntry{Title: "bare"})
	assert.NotNil(t, req.Technologies)
	assert.Nil(t, req.Link)
	assert.Nil(t, req.DocumentationExcerpt)
}

func TestPromptRender(t *testing.T) {
	p := MustDefaultPrompt()

	out, err := p.Render(CategorizationRequest{
		Name:                 "rover",
		Technologies:         []string{"C++", "ROS"},
		DocumentationExcerpt: strPtr("drives around"),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Description: N/A")
	assert.Contains(t, out, "Technologies: C++, ROS")
	assert.Contains(t, out, "URL: N/A")
	assert.Contains(t, out, "drives around")
	assert.Contains(t, out, `Do NOT categorize as "Featured"`)
	assert.NotContains(t, out, `"Featured", "AI"`, "Featured is not offered as a label")

	_, err = NewPrompt("{{.Broken")
	assert.Error(t, err)
}

type countingCategorizer struct {
	calls int
	err   error
}

func (c *countingCategorizer) Categorize(ctx context.Context, req CategorizationRequest) (CategorizationResult, error) {
	c.calls++
	if c.err != nil {
		return CategorizationResult{}, c.err
	}
	return CategorizationResult{Categories: []models.Category{models.CategoryAI}}, nil
}

func TestCachingCategorizer(t *testing.T) {
	inner := &countingCategorizer{}
	c := NewCachingCategorizer(inner, time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	req := CategorizationRequest{Name: "same", Technologies: []string{"Go"}}
	for i := 0; i < 3; i++ {
		res, err := c.Categorize(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []models.Category{models.CategoryAI}, res.Categories)
	}
	assert.Equal(t, 1, inner.calls, "identical requests are served from cache")
	assert.Equal(t, 1, c.Len())

	_, err := c.Categorize(context.Background(), CategorizationRequest{Name: "other"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	now = now.Add(time.Hour)
	_, err = c.Categorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls, "expired entries are refreshed")
}

func TestCachingCategorizer_DoesNotCacheFailures(t *testing.T) {
	inner := &countingCategorizer{err: errors.New("boom")}
	c := NewCachingCategorizer(inner, time.Hour)

	req := CategorizationRequest{Name: "flaky"}
	_, err := c.Categorize(context.Background(), req)
	require.Error(t, err)
	_, err = c.Categorize(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, c.Len())
}
