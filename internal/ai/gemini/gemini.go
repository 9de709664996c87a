// Package gemini adapts the Google Gemini API to the ai interfaces.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"flockbase.app/assistant/internal/ai"
)

const (
	defaultChatModelName      = "gemini-1.5-flash-latest"
	defaultEmbeddingModelName = "text-embedding-004"
)

type Provider struct {
	client          *genai.Client
	embeddingModel  string
	chatModel       string
	maxOutputTokens int32
}

type Config struct {
	APIKey          string
	EmbeddingModel  string
	ChatModel       string
	MaxOutputTokens int
}

func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	p := &Provider{
		client:          client,
		embeddingModel:  cfg.EmbeddingModel,
		chatModel:       cfg.ChatModel,
		maxOutputTokens: int32(cfg.MaxOutputTokens),
	}
	if p.embeddingModel == "" {
		p.embeddingModel = defaultEmbeddingModelName
	}
	if p.chatModel == "" {
		p.chatModel = defaultChatModelName
	}
	if p.maxOutputTokens <= 0 {
		p.maxOutputTokens = 600
	}
	return p, nil
}

func (p *Provider) Embedder() ai.Embedder   { return p }
func (p *Provider) Completer() ai.Completer { return p }

func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// EmbedTexts embeds a whole batch in one request. The Gemini batch API
// preserves input order, which the ingestion pipeline relies on to match
// chunk i with embedding i.
func (p *Provider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := p.client.EmbeddingModel(p.embeddingModel)
	batch := em.NewBatch()
	for _, text := range texts {
		batch = batch.AddContent(genai.Text(text))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, upstreamError(err)
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, &ai.UpstreamServiceError{
			Provider: "gemini",
			Err:      fmt.Errorf("expected %d embeddings, got %d", len(texts), got),
		}
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, &ai.UpstreamServiceError{
				Provider: "gemini",
				Err:      fmt.Errorf("empty embedding at index %d", i),
			}
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (p *Provider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := p.client.GenerativeModel(p.chatModel)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	maxTokens := p.maxOutputTokens
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", upstreamError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &ai.UpstreamServiceError{
			Provider: "gemini",
			Err:      errors.New("response had no candidates"),
		}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}
	if text.Len() == 0 {
		return "", &ai.UpstreamServiceError{
			Provider: "gemini",
			Err:      errors.New("response contained no text parts"),
		}
	}
	return text.String(), nil
}

func upstreamError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &ai.UpstreamServiceError{Provider: "gemini", StatusCode: gerr.Code, Err: err}
	}
	return &ai.UpstreamServiceError{Provider: "gemini", Err: err}
}
