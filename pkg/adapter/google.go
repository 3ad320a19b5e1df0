package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-run/modelmesh/pkg/schema"
	"google.golang.org/genai"
)

// GoogleAdapter implements Adapter for Gemini models.
type GoogleAdapter struct {
	client    *genai.Client
	Validator schema.Validator
}

// NewGoogleAdapter creates a new Google Gemini adapter.
func NewGoogleAdapter(apiKey string) (*GoogleAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleAdapter{client: client}, nil
}

// Name returns the adapter identifier.
func (a *GoogleAdapter) Name() string {
	return "google"
}

// Models returns the list of supported Gemini models.
func (a *GoogleAdapter) Models() []string {
	return []string{
		"gemini-2.0-pro",
	}
}

// Generate sends a prompt to Gemini and returns a normalized Response.
func (a *GoogleAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	prompt := req.Prompt
	if req.Schema != nil {
		prompt = withSchemaInstruction(prompt, req.Schema)
	}

	resp, err := a.client.Models.GenerateContent(ctx, req.Model, genai.Text(prompt), nil)
	if err != nil {
		return nil, &AdapterError{Temporary: true, Err: fmt.Errorf("google API error: %w", err)}
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &AdapterError{Temporary: true, Err: fmt.Errorf("google returned no candidates")}
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	structured, err := validateStructured(a.Validator, req.Schema, content)
	if err != nil {
		return nil, err
	}

	return newResponse(content, a.Name(), req.Model, req.Prompt, usage, structured, start), nil
}

// Stream emits the completed Gemini response as a synthetic word-delta stream.
func (a *GoogleAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	resp, err := a.Generate(ctx, req)
	return streamFromText(resp, err), nil
}
