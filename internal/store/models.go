package store

import "time"

// Document is one ingested source text, owned by a single church.
// It is created once per ingestion call and never mutated; deleting it
// cascades to its chunks.
type Document struct {
	ID         string    `json:"id"` // UUID
	ChurchID   string    `json:"church_id"`
	Title      string    `json:"title"`
	SourceType string    `json:"source_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is a contiguous slice of a document's text plus its embedding.
// Seq is the zero-based order of the chunk within its document.
type Chunk struct {
	ID         int64     `json:"id"`
	ChurchID   string    `json:"church_id"`
	DocumentID string    `json:"document_id"`
	Seq        int       `json:"seq"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"` // stored as a JSON string column, internal
}

// FAQ is a curated question/answer pair used to short-circuit retrieval.
type FAQ struct {
	ID       int64  `json:"id"`
	ChurchID string `json:"church_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
