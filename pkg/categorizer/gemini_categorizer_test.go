package categorizer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/costtracker"
	"folio/internal/models"
)

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func geminiResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]genai.Part, len(texts))
	for i, t := range texts {
		parts[i] = genai.Text(t)
	}
	return &genai.GenerateContentResponse{
		Candidates:    []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 500, CandidatesTokenCount: 8},
	}
}

func TestGeminiCategorizer_Categorize(t *testing.T) {
	gen := &fakeGenerator{resp: geminiResponse(`{"categories": `, `["Machine Learning", "Data Analysis"]}`)}
	tracker := costtracker.New()
	c := NewGeminiCategorizerWithGenerator(gen, "gemini-test", nil, tracker, nil)

	result, err := c.Categorize(context.Background(), CategorizationRequest{Name: "churn-model"})
	require.NoError(t, err)
	assert.Equal(t, []models.Category{models.CategoryMachineLearning, models.CategoryDataAnalysis}, result.Categories)

	require.Len(t, gen.parts, 1)
	text, ok := gen.parts[0].(genai.Text)
	require.True(t, ok)
	assert.Contains(t, string(text), "Name: churn-model")

	summary, err := tracker.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Calls)
	assert.Equal(t, int64(8), summary.OutputTokens)
	assert.Zero(t, summary.TotalUSD, "no pricing configured")
}

func TestGeminiCategorizer_Errors(t *testing.T) {
	apiErr := errors.New("quota exceeded")

	testCases := []struct {
		name    string
		gen     *fakeGenerator
		wantErr string
	}{
		{name: "api error", gen: &fakeGenerator{err: apiErr}, wantErr: "gemini generate content failed"},
		{name: "no candidates", gen: &fakeGenerator{resp: &genai.GenerateContentResponse{}}, wantErr: "no candidates"},
		{name: "nil response", gen: &fakeGenerator{}, wantErr: "no candidates"},
		{name: "featured", gen: &fakeGenerator{resp: geminiResponse(`{"categories": ["Featured"]}`)}, wantErr: "reserved"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewGeminiCategorizerWithGenerator(tc.gen, "gemini-test", nil, nil, nil)
			_, err := c.Categorize(context.Background(), CategorizationRequest{Name: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewGeminiCategorizer_RequiresKey(t *testing.T) {
	_, err := NewGeminiCategorizer(context.Background(), "", "gemini-test", nil, nil, nil)
	assert.Error(t, err)
}
