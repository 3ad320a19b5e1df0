package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-run/modelmesh/pkg/schema"
)

// MockAdapter returns deterministic responses for local runs and tests.
type MockAdapter struct {
	responses       map[string]string
	defaultResponse string
	Usage           Usage
	Validator       schema.Validator
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined
// prompt -> response mappings, falling back to defaultResponse otherwise.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockAdapter{responses: responses, defaultResponse: defaultResponse}
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

// Generate returns a deterministic response for the prompt.
func (a *MockAdapter) Generate(_ context.Context, req Request) (*Response, error) {
	start := time.Now()
	model := req.Model
	if model == "" {
		model = "mock-1"
	}

	content, ok := a.responses[req.Prompt]
	if !ok {
		content = fmt.Sprintf("%s\n%s", a.defaultResponse, req.Prompt)
	}

	structured, err := validateStructured(a.Validator, req.Schema, content)
	if err != nil {
		return nil, err
	}

	return newResponse(content, a.Name(), model, req.Prompt, a.Usage, structured, start), nil
}

// Stream emits the deterministic response as a synthetic word-delta stream.
func (a *MockAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	resp, err := a.Generate(ctx, req)
	return streamFromText(resp, err), nil
}
