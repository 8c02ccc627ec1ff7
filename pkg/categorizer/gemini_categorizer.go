package categorizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"folio/internal/config"
	"folio/internal/costtracker"
)

// ContentGenerator is the part of *genai.GenerativeModel the categorizer uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiCategorizer implements ProjectCategorizer with the Google Gemini API.
type GeminiCategorizer struct {
	client    *genai.Client // nil when constructed around a bare generator
	generator ContentGenerator
	prompt    *Prompt
	model     string

	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
}

// NewGeminiCategorizer dials the Gemini API with apiKey.
func NewGeminiCategorizer(ctx context.Context, apiKey, model string, prompt *Prompt, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) (*GeminiCategorizer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required for categorization")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	gm := client.GenerativeModel(model)
	gm.ResponseMIMEType = "application/json"
	gm.SetTemperature(0)

	c := NewGeminiCategorizerWithGenerator(gm, model, prompt, costTracker, pricing)
	c.client = client
	log.Infof("Gemini categorizer initialized with model %s", model)
	return c, nil
}

// NewGeminiCategorizerWithGenerator wraps an existing generator.
func NewGeminiCategorizerWithGenerator(gen ContentGenerator, model string, prompt *Prompt, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *GeminiCategorizer {
	if prompt == nil {
		prompt = MustDefaultPrompt()
	}
	return &GeminiCategorizer{
		generator:   gen,
		model:       model,
		prompt:      prompt,
		costTracker: costTracker,
		pricing:     pricing,
	}
}

func (c *GeminiCategorizer) Categorize(ctx context.Context, req CategorizationRequest) (CategorizationResult, error) {
	if c.generator == nil {
		return CategorizationResult{}, errors.New("gemini categorizer is not initialized")
	}

	prompt, err := c.prompt.Render(req)
	if err != nil {
		return CategorizationResult{}, err
	}

	resp, err := c.generator.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return CategorizationResult{}, fmt.Errorf("gemini generate content failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return CategorizationResult{}, errors.New("no candidates returned from Gemini")
	}

	if resp.UsageMetadata != nil {
		costtracker.Record(ctx, c.costTracker, c.pricing, costtracker.CostEvent{
			Operation:    "categorization",
			Provider:     "gemini",
			Model:        c.model,
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			Details:      map[string]interface{}{"project": req.Name},
		})
	}

	categories, err := ParseCategories(text)
	if err != nil {
		return CategorizationResult{}, err
	}
	return CategorizationResult{Categories: categories}, nil
}

// Close releases the underlying client, if any.
func (c *GeminiCategorizer) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
