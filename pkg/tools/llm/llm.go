// Package llm wraps the generative model backing classification,
// prioritization, and response-generation tool adapters behind one
// narrow contract, so those adapters never import google.golang.org/genai
// directly and tests can swap in a deterministic stub.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Client produces a JSON-formatted completion for prompt.
type Client interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GeminiClient implements Client against Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// Config configures a GeminiClient.
type Config struct {
	APIKey string
	Model  string
}

// New creates a GeminiClient. Constructors take context.Background()
// internally per the SDK's own convention - callers should not need a
// live request context just to wire up the client.
func New(cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// CompleteJSON asks the model to respond strictly in JSON, the format
// every adapter's fallback parser expects.
func (c *GeminiClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: userPrompt}},
	}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("llm: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("llm: empty response")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", fmt.Errorf("llm: response had no text parts")
	}
	return text, nil
}

// StubClient is a deterministic Client for tests and for running the
// engine without a configured model key; it always returns err so
// callers exercise their keyword-heuristic fallback path.
type StubClient struct{}

func (StubClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", fmt.Errorf("llm: stub client has no model backing, fallback required")
}
