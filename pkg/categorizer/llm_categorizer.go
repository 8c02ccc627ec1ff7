package categorizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"folio/internal/config"
	"folio/internal/costtracker"
)

// ChatCompletionCreator is the part of the OpenAI client the categorizer uses.
type ChatCompletionCreator interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMCategorizer implements ProjectCategorizer on an OpenAI-compatible chat API.
type LLMCategorizer struct {
	client ChatCompletionCreator
	prompt *Prompt
	model  string

	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
}

// NewLLMCategorizer creates a categorizer using an OpenAI-compatible client.
// A nil prompt selects the built-in one; costTracker and pricing may be nil.
func NewLLMCategorizer(client ChatCompletionCreator, model string, prompt *Prompt, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *LLMCategorizer {
	if prompt == nil {
		prompt = MustDefaultPrompt()
	}
	return &LLMCategorizer{
		client:      client,
		model:       model,
		prompt:      prompt,
		costTracker: costTracker,
		pricing:     pricing,
	}
}

func (c *LLMCategorizer) Categorize(ctx context.Context, req CategorizationRequest) (CategorizationResult, error) {
	if c.client == nil {
		return CategorizationResult{}, fmt.Errorf("LLM categorizer is not initialized with an OpenAI client")
	}

	prompt, err := c.prompt.Render(req)
	if err != nil {
		return CategorizationResult{}, err
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: 0,
		},
	)
	if err != nil {
		return CategorizationResult{}, fmt.Errorf("openai chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return CategorizationResult{}, fmt.Errorf("no choices returned from OpenAI")
	}

	costtracker.Record(ctx, c.costTracker, c.pricing, costtracker.CostEvent{
		Operation:    "categorization",
		Provider:     "openai",
		Model:        c.model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Details:      map[string]interface{}{"project": req.Name},
	})

	categories, err := ParseCategories(strings.TrimSpace(resp.Choices[0].Message.Content))
	if err != nil {
		return CategorizationResult{}, err
	}
	return CategorizationResult{Categories: categories}, nil
}
