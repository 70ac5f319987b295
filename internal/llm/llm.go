// Package llm talks to text generation and embedding backends over HTTP:
// a local Ollama server and OpenAI-compatible APIs.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyResponse is returned when a backend answers with no text or no
// vectors.
var ErrEmptyResponse = errors.New("llm: empty response")

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 2 * time.Minute

// Request is a single completion request. Zero-valued sampling fields are
// left to the backend's defaults.
type Request struct {
	Prompt        string
	Temperature   float64
	TopP          float64
	MaxTokens     int
	RepeatPenalty float64
	Stop          []string
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Embedder computes one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Named is implemented by backends that can report the model they use.
type Named interface {
	ModelName() string
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
