package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Completer sends one prompt and returns the raw JSON text of the answer.
// Implementations ask the service for an object shaped {"tasks": [string]}.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var errEmptyCompletion = errors.New("completion returned no text")

// taskListSchema is the response shape the service is told to produce.
var taskListSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"tasks": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A single, actionable task.",
			},
		},
	},
	Required: []string{"tasks"},
}

// GeminiOption adjusts the client configuration.
type GeminiOption func(*genai.ClientConfig)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(url string) GeminiOption {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = url
	}
}

// GeminiCompleter calls the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{Reason: "API key not set"}
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   taskListSchema,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}
