package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-run/modelmesh/pkg/schema"
	"github.com/openai/openai-go"
)

// OpenAIAdapter implements Adapter for OpenAI chat models.
type OpenAIAdapter struct {
	client    openai.Client
	Validator schema.Validator
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(apiKey string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	client := openai.NewClient()
	return &OpenAIAdapter{client: client}, nil
}

// Name returns the adapter identifier.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Models returns the list of supported OpenAI models.
func (a *OpenAIAdapter) Models() []string {
	return []string{
		"gpt-5.2-instant",
		"gpt-5.2-thinking",
		"gpt-5.2-codex",
		"gpt-5.2-pro",
	}
}

// Generate sends a prompt to OpenAI and returns a normalized Response.
func (a *OpenAIAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	prompt := req.Prompt
	if req.Schema != nil {
		prompt = withSchemaInstruction(prompt, req.Schema)
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return nil, &AdapterError{Temporary: true, Err: fmt.Errorf("openai API error: %w", err)}
	}

	if len(resp.Choices) == 0 {
		return nil, &AdapterError{Temporary: true, Err: fmt.Errorf("openai returned no choices")}
	}

	content := resp.Choices[0].Message.Content

	usage := Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}

	structured, err := validateStructured(a.Validator, req.Schema, content)
	if err != nil {
		return nil, err
	}

	return newResponse(content, a.Name(), req.Model, req.Prompt, usage, structured, start), nil
}

// Stream emits the completed OpenAI response as a synthetic word-delta stream.
func (a *OpenAIAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	resp, err := a.Generate(ctx, req)
	return streamFromText(resp, err), nil
}
