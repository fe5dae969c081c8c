// Package completion abstracts the external text-completion capability
// the pipeline stages call. Providers return either free-text content or
// structured arguments when a function schema is supplied.
package completion

import (
	"context"
	"encoding/json"
)

// Client sends a prompt to a completion provider.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request captures a single completion call.
type Request struct {
	System      string
	User        string
	Schema      *Schema
	Temperature float32
	MaxTokens   int
}

// Schema describes the function-call output contract forced on the
// provider when structured output is required.
type Schema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Response carries the provider output. Arguments is set when the
// request forced a function schema; Content otherwise.
type Response struct {
	Content   string
	Arguments json.RawMessage
}
