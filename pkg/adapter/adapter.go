// Package adapter is the concrete, provider-specific implementation of the
// LLMClient collaborator: unary and streaming invocation of a named backend,
// optionally constrained to a declared schema.Schema.
package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/kestrel-run/modelmesh/pkg/artifact"
	"github.com/kestrel-run/modelmesh/pkg/schema"
)

// Adapter defines the interface every LLM provider implementation satisfies.
type Adapter interface {
	// Generate sends a prompt to the model and returns a normalized Response.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Stream sends a prompt and emits incremental StreamEvents, terminated
	// by one event with Done=true carrying the final Response (or Err set).
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// AdapterInfo holds metadata about an adapter, for introspection endpoints.
type AdapterInfo struct {
	Name   string
	Models []ModelInfo
}

// ModelInfo holds metadata about a model.
type ModelInfo struct {
	ID          string
	Description string
}

// validateStructured runs raw text through v against s, when both are
// present. Adapters call this from Generate so Response.Structured is
// populated uniformly regardless of which provider produced the text.
func validateStructured(v schema.Validator, s *schema.Schema, text string) (map[string]any, error) {
	if s == nil {
		return nil, nil
	}
	if v == nil {
		v = schema.NewDefaultValidator()
	}
	return v.Validate([]byte(text), s)
}

// streamFromText turns an already-complete response into a synthetic
// word-delta stream. Every concrete adapter here wraps a request/response
// provider API, not a true server-sent-events one, so streaming is
// implemented by chunking the final text rather than by relaying
// provider-side deltas; callers only observe incremental delivery, not a
// difference in total latency.
func streamFromText(resp *Response, err error) <-chan StreamEvent {
	ch := make(chan StreamEvent, 8)
	go func() {
		defer close(ch)
		if err != nil {
			ch <- StreamEvent{Done: true, Err: err}
			return
		}
		words := strings.Fields(resp.Artifact.Content)
		for _, w := range words {
			ch <- StreamEvent{Delta: w + " "}
		}
		ch <- StreamEvent{Done: true, Response: resp}
	}()
	return ch
}

// withSchemaInstruction appends a plain-language instruction describing the
// required JSON shape. The validator, not the prompt, is the actual
// contract enforcement point; this only improves the odds a backend without
// native structured-output support returns something that validates.
func withSchemaInstruction(prompt string, s *schema.Schema) string {
	if s == nil {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nRespond with a single JSON object named \"")
	b.WriteString(s.Name)
	b.WriteString("\" with exactly these fields: ")
	first := true
	for name, spec := range s.Fields {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(name)
		b.WriteString(" (")
		b.WriteString(spec.Type.String())
		if spec.Required {
			b.WriteString(", required")
		}
		b.WriteString(")")
	}
	b.WriteString(". Return only the JSON object, no surrounding prose.")
	return b.String()
}

func newResponse(content, adapterName, model, prompt string, usage Usage, structured map[string]any, start time.Time) *Response {
	return &Response{
		Artifact:   artifact.New(content, adapterName, model, prompt),
		Usage:      usage,
		Structured: structured,
		LatencyMS:  time.Since(start).Milliseconds(),
	}
}
