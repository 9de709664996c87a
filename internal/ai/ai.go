// Package ai defines the narrow interfaces the retrieval core uses to talk to
// external embedding and chat-completion services, plus the error type that
// carries upstream HTTP status codes back to callers.
package ai

import (
	"context"
	"fmt"
)

// Embedder turns texts into fixed-length embedding vectors. A single call may
// carry a whole batch; the returned slice preserves input order so that text i
// maps to vector i.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer sends one non-streaming chat completion request and returns the
// top candidate's text. Output length is bounded by the provider configuration.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Provider bundles the two AI capabilities behind one lifecycle.
type Provider interface {
	Embedder() Embedder
	Completer() Completer
	Close() error
}

// UpstreamServiceError reports a non-2xx response from an embedding or
// chat-completion service. StatusCode is the upstream HTTP status when known
// (0 otherwise); rate limiting (429) and quota exhaustion (402) are preserved
// so callers can surface a specific message.
type UpstreamServiceError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s service returned status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s service request failed: %v", e.Provider, e.Err)
}

func (e *UpstreamServiceError) Unwrap() error { return e.Err }
