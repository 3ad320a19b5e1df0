package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kestrel-run/modelmesh/pkg/schema"
	"github.com/tidwall/gjson"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekAdapter implements Adapter for DeepSeek models. DeepSeek speaks an
// OpenAI-compatible wire format but ships no Go SDK, so this adapter talks
// plain HTTP/JSON directly.
type DeepSeekAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	Validator  schema.Validator
}

type deepseekRequest struct {
	Model       string            `json:"model"`
	Messages    []deepseekMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

type deepseekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewDeepSeekAdapter creates a new DeepSeek adapter.
func NewDeepSeekAdapter(apiKey string) (*DeepSeekAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}

	return &DeepSeekAdapter{
		apiKey:     apiKey,
		baseURL:    deepseekBaseURL,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the adapter identifier.
func (a *DeepSeekAdapter) Name() string {
	return "deepseek"
}

// Models returns the list of supported DeepSeek models.
func (a *DeepSeekAdapter) Models() []string {
	return []string{
		"deepseek-chat",
		"deepseek-coder",
		"deepseek-reasoner",
	}
}

// Generate sends a prompt to DeepSeek and returns a normalized Response.
func (a *DeepSeekAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	prompt := req.Prompt
	if req.Schema != nil {
		prompt = withSchemaInstruction(prompt, req.Schema)
	}

	reqBody := deepseekRequest{
		Model: req.Model,
		Messages: []deepseekMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &AdapterError{Temporary: true, Err: fmt.Errorf("deepseek API request failed: %w", err)}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Peek the "error" field with gjson before committing to a full decode:
	// on the success path (the overwhelming majority of calls) this avoids
	// building out the choices/usage structs just to discard them.
	if errField := gjson.GetBytes(body, "error.message"); errField.Exists() {
		return nil, &AdapterError{
			Status:    httpResp.StatusCode,
			Temporary: httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500,
			Err:       fmt.Errorf("deepseek API error: %s", errField.String()),
		}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &AdapterError{
			Status:    httpResp.StatusCode,
			Temporary: httpResp.StatusCode >= 500,
			Err:       fmt.Errorf("deepseek API returned status %d: %s", httpResp.StatusCode, string(body)),
		}
	}

	content := gjson.GetBytes(body, "choices.0.message.content").String()
	if content == "" {
		return nil, &AdapterError{Temporary: true, Err: fmt.Errorf("deepseek returned no choices")}
	}

	usage := Usage{
		PromptTokens:     int(gjson.GetBytes(body, "usage.prompt_tokens").Int()),
		CompletionTokens: int(gjson.GetBytes(body, "usage.completion_tokens").Int()),
		TotalTokens:      int(gjson.GetBytes(body, "usage.total_tokens").Int()),
	}

	structured, err := validateStructured(a.Validator, req.Schema, content)
	if err != nil {
		return nil, err
	}

	return newResponse(content, a.Name(), req.Model, req.Prompt, usage, structured, start), nil
}

// Stream emits the completed DeepSeek response as a synthetic word-delta stream.
func (a *DeepSeekAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	resp, err := a.Generate(ctx, req)
	return streamFromText(resp, err), nil
}
