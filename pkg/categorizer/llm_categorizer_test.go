package categorizer

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/config"
	"folio/internal/costtracker"
	"folio/internal/models"
)

// --- Mock OpenAI Client ---
type mockOpenAIClient struct {
	mockResponse openai.ChatCompletionResponse
	mockError    error
	lastRequest  openai.ChatCompletionRequest
	calls        int
}

func (m *mockOpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.calls++
	m.lastRequest = req
	if m.mockError != nil {
		return openai.ChatCompletionResponse{}, m.mockError
	}
	return m.mockResponse, nil
}

func responseWith(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
		Usage: openai.Usage{PromptTokens: 1000, CompletionTokens: 10, TotalTokens: 1010},
	}
}

func TestLLMCategorizer_Categorize_Parsing(t *testing.T) {
	mockClient := &mockOpenAIClient{
		mockResponse: responseWith(`{"categories": ["Robotics", "AI"]}`),
	}
	c := NewLLMCategorizer(mockClient, "gpt-test", nil, nil, nil)

	desc := "Self-balancing robot on a Raspberry Pi"
	result, err := c.Categorize(context.Background(), CategorizationRequest{
		Name:         "balance-bot",
		Description:  &desc,
		Technologies: []string{"Python", "OpenCV"},
	})

	require.NoError(t, err)
	assert.Equal(t, []models.Category{models.CategoryRobotics, models.CategoryAI}, result.Categories)

	require.Len(t, mockClient.lastRequest.Messages, 1)
	prompt := mockClient.lastRequest.Messages[0].Content
	assert.Contains(t, prompt, "Name: balance-bot")
	assert.Contains(t, prompt, "Technologies: Python, OpenCV")
	assert.Contains(t, prompt, "README Content: N/A")
	assert.Equal(t, "gpt-test", mockClient.lastRequest.Model)
	require.NotNil(t, mockClient.lastRequest.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, mockClient.lastRequest.ResponseFormat.Type)
}

// Test case for when the LLM returns non-JSON content
func TestLLMCategorizer_Categorize_InvalidJSON(t *testing.T) {
	invalidJSON := `This is just plain text, not JSON.`
	mockClient := &mockOpenAIClient{mockResponse: responseWith(invalidJSON)}
	c := NewLLMCategorizer(mockClient, "gpt-test", nil, nil, nil)

	_, err := c.Categorize(context.Background(), CategorizationRequest{Name: "Test"})

	require.Error(t, err, "Categorize should return an error for invalid JSON")
	assert.Contains(t, err.Error(), "failed to parse LLM response as JSON")
	assert.Contains(t, err.Error(), invalidJSON, "Error message should include the raw invalid content")
}

func TestLLMCategorizer_Categorize_RejectedOutputs(t *testing.T) {
	testCases := []struct {
		name         string
		jsonResponse string
	}{
		{name: "Empty list", jsonResponse: `{"categories": []}`},
		{name: "Missing field", jsonResponse: `{}`},
		{name: "Featured", jsonResponse: `{"categories": ["Featured"]}`},
		{name: "Featured mixed in", jsonResponse: `{"categories": ["AI", "Featured"]}`},
		{name: "Unknown label", jsonResponse: `{"categories": ["Blockchain"]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockClient := &mockOpenAIClient{mockResponse: responseWith(tc.jsonResponse)}
			c := NewLLMCategorizer(mockClient, "gpt-test", nil, nil, nil)

			result, err := c.Categorize(context.Background(), CategorizationRequest{Name: "Test"})

			require.Error(t, err)
			assert.Empty(t, result.Categories)
		})
	}
}

func TestLLMCategorizer_Categorize_APIError(t *testing.T) {
	mockErr := errors.New("simulated API error 429 Too Many Requests")
	mockClient := &mockOpenAIClient{mockError: mockErr}
	c := NewLLMCategorizer(mockClient, "gpt-test", nil, nil, nil)

	_, err := c.Categorize(context.Background(), CategorizationRequest{Name: "Test"})

	require.Error(t, err, "Categorize should return an error when the API call fails")
	assert.ErrorIs(t, err, mockErr, "Returned error should wrap the original API error")
	assert.Contains(t, err.Error(), "openai chat completion failed")
}

// Test case for when the OpenAI API returns an empty Choices slice
func TestLLMCategorizer_Categorize_EmptyResponse(t *testing.T) {
	mockClient := &mockOpenAIClient{mockResponse: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{}}}
	c := NewLLMCategorizer(mockClient, "gpt-test", nil, nil, nil)

	_, err := c.Categorize(context.Background(), CategorizationRequest{Name: "Test"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices returned from OpenAI")
}

func TestLLMCategorizer_Categorize_NilClient(t *testing.T) {
	c := NewLLMCategorizer(nil, "gpt-test", nil, nil, nil)
	_, err := c.Categorize(context.Background(), CategorizationRequest{Name: "Test"})
	assert.Error(t, err)
}

func TestLLMCategorizer_Categorize_RecordsCost(t *testing.T) {
	tracker := costtracker.New()
	pricing := map[string]config.PricingInfo{
		"gpt-test": {InputPerToken: 0.000001, OutputPerToken: 0.00001},
	}
	mockClient := &mockOpenAIClient{mockResponse: responseWith(`{"categories": ["Other"]}`)}
	c := NewLLMCategorizer(mockClient, "gpt-test", nil, tracker, pricing)

	_, err := c.Categorize(context.Background(), CategorizationRequest{Name: "Test"})
	require.NoError(t, err)

	summary, err := tracker.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Calls)
	assert.Equal(t, int64(1000), summary.InputTokens)
	assert.InDelta(t, 0.0011, summary.TotalUSD, 1e-9)
}

func TestLLMCategorizer_CustomPrompt(t *testing.T) {
	prompt, err := NewPrompt(`classify {{.Name}} into {{.Labels}}`)
	require.NoError(t, err)
	mockClient := &mockOpenAIClient{mockResponse: responseWith(`{"categories": ["Web/Cloud"]}`)}
	c := NewLLMCategorizer(mockClient, "gpt-test", prompt, nil, nil)

	result, err := c.Categorize(context.Background(), CategorizationRequest{Name: "site"})
	require.NoError(t, err)
	assert.Equal(t, []models.Category{models.CategoryWebCloud}, result.Categories)
	assert.Equal(t,
		`classify site into "AI", "Machine Learning", "Data Analysis", "Web/Cloud", "Robotics", "Other"`,
		mockClient.lastRequest.Messages[0].Content)
}
