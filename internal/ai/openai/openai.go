// Package openai adapts OpenAI-compatible APIs to the ai interfaces using
// langchaingo. It works against api.openai.com as well as local compatible
// servers when a base URL is configured.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"flockbase.app/assistant/internal/ai"
)

const (
	defaultChatModelName      = "gpt-4o-mini"
	defaultEmbeddingModelName = "text-embedding-3-small"
)

type Provider struct {
	llm             *lcopenai.LLM
	maxOutputTokens int
}

type Config struct {
	APIKey          string
	BaseURL         string
	EmbeddingModel  string
	ChatModel       string
	MaxOutputTokens int
}

func NewProvider(cfg Config) (*Provider, error) {
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = defaultChatModelName
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModelName
	}

	opts := []lcopenai.Option{
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(chatModel),
		lcopenai.WithEmbeddingModel(embeddingModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 600
	}
	return &Provider{llm: llm, maxOutputTokens: maxTokens}, nil
}

func (p *Provider) Embedder() ai.Embedder   { return p }
func (p *Provider) Completer() ai.Completer { return p }

func (p *Provider) Close() error { return nil }

func (p *Provider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := p.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, upstreamError(err)
	}
	if len(vectors) != len(texts) {
		return nil, &ai.UpstreamServiceError{
			Provider: "openai",
			Err:      fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors)),
		}
	}
	return vectors, nil
}

func (p *Provider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := p.llm.GenerateContent(ctx, messages, llms.WithMaxTokens(p.maxOutputTokens))
	if err != nil {
		return "", upstreamError(err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", &ai.UpstreamServiceError{
			Provider: "openai",
			Err:      errors.New("response had no choices"),
		}
	}
	return resp.Choices[0].Content, nil
}

// upstreamError classifies the opaque errors langchaingo returns. The client
// embeds the upstream status in the error text, so the interesting codes are
// recovered by inspection.
func upstreamError(err error) error {
	statusCodes := []int{
		http.StatusTooManyRequests,
		http.StatusPaymentRequired,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusBadRequest,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable,
	}
	msg := err.Error()
	for _, code := range statusCodes {
		if strings.Contains(msg, fmt.Sprintf("status code: %d", code)) {
			return &ai.UpstreamServiceError{Provider: "openai", StatusCode: code, Err: err}
		}
	}
	return &ai.UpstreamServiceError{Provider: "openai", Err: err}
}
