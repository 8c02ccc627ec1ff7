package categorizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"folio/internal/models"
)

var errNoCategories = errors.New("model returned no categories")

func allowedLabels() string {
	cats := models.ClassifiableCategories()
	quoted := make([]string, len(cats))
	for i, c := range cats {
		quoted[i] = strconv.Quote(c.Label())
	}
	return strings.Join(quoted, ", ")
}

// ParseCategories validates a model response of the form {"categories": [...]}.
// Every label must name a classifiable category; Featured and unknown labels
// reject the whole response. Duplicates are dropped, order is kept.
func ParseCategories(content string) ([]models.Category, error) {
	content = stripCodeFence(strings.TrimSpace(content))

	var parsed struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w\nResponse content: %s", err, content)
	}

	out := make([]models.Category, 0, len(parsed.Categories))
	seen := make(map[models.Category]bool, len(parsed.Categories))
	for _, raw := range parsed.Categories {
		cat, err := models.ParseCategory(raw)
		if err != nil {
			return nil, fmt.Errorf("response label rejected: %w", err)
		}
		if !cat.Classifiable() {
			return nil, fmt.Errorf("response label %q is reserved for manual curation: %w", raw, models.ErrInvalidCategory)
		}
		if seen[cat] {
			continue
		}
		seen[cat] = true
		out = append(out, cat)
	}
	if len(out) == 0 {
		return nil, errNoCategories
	}
	return out, nil
}

// stripCodeFence removes a surrounding Markdown code fence, if any.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the info string, e.g. "json"
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
