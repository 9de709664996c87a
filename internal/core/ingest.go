package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"flockbase.app/assistant/internal/ai"
	"flockbase.app/assistant/internal/store"
)

// EmbedBatchSize is how many chunks are embedded per upstream request.
// Batches are issued sequentially so peak concurrent outbound requests stay
// at one, which keeps ingestion under provider rate limits.
const EmbedBatchSize = 50

// ChunkStore is the slice of the persistence layer the pipelines need for
// documents and chunks.
type ChunkStore interface {
	CreateDocumentWithChunks(doc *store.Document, chunks []store.Chunk) error
	GetChunksByChurch(churchID string) ([]store.Chunk, error)
}

type IngestRequest struct {
	ChurchID   string
	Title      string
	Text       string
	SourceType string
}

type IngestResult struct {
	DocumentID string
	ChunkCount int
}

// IngestionService turns raw text into overlapping chunks, embeds them and
// persists them under a new document record, scoped to one church.
type IngestionService struct {
	chunkStore ChunkStore
	embedder   ai.Embedder
}

func NewIngestionService(chunkStore ChunkStore, embedder ai.Embedder) *IngestionService {
	return &IngestionService{
		chunkStore: chunkStore,
		embedder:   embedder,
	}
}

// Ingest validates the request, chunks the text, embeds every chunk and
// writes the document plus its chunks in one transaction. All embedding
// batches must succeed before anything is written, so a failed embedding
// call leaves no orphaned document behind.
func (s *IngestionService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if strings.TrimSpace(req.ChurchID) == "" {
		return nil, &ValidationError{Field: "churchId"}
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, &ValidationError{Field: "title"}
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, &ValidationError{Field: "text"}
	}

	pieces := SplitText(req.Text)
	if len(pieces) == 0 {
		return nil, &ValidationError{Field: "text"}
	}

	// Sequential batches; responses are consumed in submission order so
	// chunk i always gets embedding i.
	embeddings := make([][]float32, 0, len(pieces))
	for start := 0; start < len(pieces); start += EmbedBatchSize {
		end := start + EmbedBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch := pieces[start:end]

		vectors, err := s.embedder.EmbedTexts(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk batch starting at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding batch starting at %d returned %d vectors for %d chunks", start, len(vectors), len(batch))
		}
		embeddings = append(embeddings, vectors...)
	}

	chunks := make([]store.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = store.Chunk{
			Seq:       i,
			Content:   content,
			Embedding: embeddings[i],
		}
	}

	doc := &store.Document{
		ChurchID:   req.ChurchID,
		Title:      req.Title,
		SourceType: req.SourceType,
	}
	if err := s.chunkStore.CreateDocumentWithChunks(doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to persist document %q: %w", req.Title, err)
	}

	log.Printf("Ingested document %s (%q) for church %s: %d chunks", doc.ID, req.Title, req.ChurchID, len(chunks))
	return &IngestResult{DocumentID: doc.ID, ChunkCount: len(chunks)}, nil
}
