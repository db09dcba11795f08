package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when a provider answers without content.
var ErrEmptyCompletion = errors.New("no response content")

// Prompt is one completion request: a system instruction and user content.
type Prompt struct {
	System string
	User   string
	// JSON asks the provider for a JSON object response where supported.
	JSON bool
}

type LLMClient interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
