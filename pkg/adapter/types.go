package adapter

import (
	"github.com/kestrel-run/modelmesh/pkg/artifact"
	"github.com/kestrel-run/modelmesh/pkg/schema"
)

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Cost captures normalized cost estimates.
type Cost struct {
	Currency     string  `json:"currency"`
	Amount       float64 `json:"amount"`
	IsEstimate   bool    `json:"is_estimate"`
	PricingModel string  `json:"pricing_model,omitempty"`
}

// CallReport captures adapter call metadata, independent of whether the
// call ultimately succeeded, for cost/telemetry reporting.
type CallReport struct {
	Adapter      string `json:"adapter"`
	Model        string `json:"model"`
	Usage        Usage  `json:"usage"`
	Cost         Cost   `json:"cost"`
	Retries      int    `json:"retries"`
	FallbackUsed bool   `json:"fallback_used"`
	Error        string `json:"error,omitempty"`
}

// Request is the normalized shape every concrete Adapter accepts. Schema is
// nil for plain-text generation; when set, the adapter is expected to
// instruct the backend to emit JSON matching it, and Response.Structured is
// populated by running the raw text through a schema.Validator.
type Request struct {
	Model       string
	Prompt      string
	Schema      *schema.Schema
	MaxTokens   int
	Temperature float64
}

// Response is the normalized shape every concrete Adapter returns. Artifact
// carries the raw text plus provenance (content hash, adapter, model);
// Structured carries the schema-validated decode when Request.Schema was set.
type Response struct {
	Artifact   *artifact.Artifact
	Usage      Usage
	Structured map[string]any
	LatencyMS  int64
}

// StreamEvent is one increment of a streamed generation.
type StreamEvent struct {
	Delta    string
	Done     bool
	Response *Response
	Err      error
}
