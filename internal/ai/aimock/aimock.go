// Package aimock provides deterministic test doubles for the ai interfaces.
// Custom behavior is injected through function fields; when a field is nil,
// a deterministic default is used so tests stay reproducible.
package aimock

import (
	"context"
	"hash/fnv"
)

// DefaultDimensions is the vector length produced by the default embedding.
const DefaultDimensions = 8

// Embedder is a test double for ai.Embedder.
type Embedder struct {
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	Calls   int
	Batches [][]string
}

func (m *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.Calls++
	m.Batches = append(m.Batches, texts)

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = DeterministicVector(text, DefaultDimensions)
	}
	return vectors, nil
}

// Completer is a test double for ai.Completer.
type Completer struct {
	CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	Calls        int
	LastSystem   string
	LastUser     string
	CannedAnswer string
}

func (m *Completer) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.Calls++
	m.LastSystem = systemPrompt
	m.LastUser = userPrompt

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemPrompt, userPrompt)
	}
	if m.CannedAnswer != "" {
		return m.CannedAnswer, nil
	}
	return "réponse de test", nil
}

// DeterministicVector hashes text into a repeatable pseudo-embedding. Equal
// texts always produce equal vectors, so similarity ranking in tests is stable.
func DeterministicVector(text string, dimensions int) []float32 {
	vector := make([]float32, dimensions)
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()
	for i := range vector {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%2000)/1000.0 - 1.0
	}
	return vector
}
