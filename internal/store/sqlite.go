package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// StorageError reports a persistence read/write failure against the
// document/chunk/FAQ store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// SQLiteStore is the multi-tenant persistence layer. Every read and write is
// filtered by church id; cross-tenant leakage is the primary invariant to
// protect here.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS documents (
        id TEXT PRIMARY KEY, -- UUID
        church_id TEXT NOT NULL,
        title TEXT NOT NULL,
        source_type TEXT NOT NULL DEFAULT 'text',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chunks (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        church_id TEXT NOT NULL,
        document_id TEXT NOT NULL,
        seq INTEGER NOT NULL,
        content TEXT NOT NULL,
        embedding_json TEXT NOT NULL, -- JSON string of []float32
        FOREIGN KEY (document_id) REFERENCES documents (id) ON DELETE CASCADE
    );
    CREATE INDEX IF NOT EXISTS idx_chunks_church ON chunks (church_id);

    CREATE TABLE IF NOT EXISTS faqs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        church_id TEXT NOT NULL,
        question TEXT NOT NULL,
        answer TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_faqs_church ON faqs (church_id);
    `
	_, err := s.db.Exec(schema)
	return err
}

// CreateDocumentWithChunks inserts the parent document and all of its chunks
// in a single transaction, so a failure leaves no orphaned document behind.
// Chunk.Seq, Content and Embedding must already be populated; ChurchID and
// DocumentID are stamped from the document.
func (s *SQLiteStore) CreateDocumentWithChunks(doc *Document, chunks []Chunk) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	if doc.SourceType == "" {
		doc.SourceType = "text"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO documents (id, church_id, title, source_type, created_at) VALUES (?, ?, ?, ?, ?)",
		doc.ID, doc.ChurchID, doc.Title, doc.SourceType, doc.CreatedAt,
	)
	if err != nil {
		return storageErr("document insert", err)
	}

	stmt, err := tx.Prepare("INSERT INTO chunks (church_id, document_id, seq, content, embedding_json) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return storageErr("chunk insert prepare", err)
	}
	defer stmt.Close()

	for i := range chunks {
		chunks[i].ChurchID = doc.ChurchID
		chunks[i].DocumentID = doc.ID

		embeddingJSON, err := json.Marshal(chunks[i].Embedding)
		if err != nil {
			return storageErr("embedding marshal", err)
		}
		if _, err := stmt.Exec(doc.ChurchID, doc.ID, chunks[i].Seq, chunks[i].Content, string(embeddingJSON)); err != nil {
			return storageErr("chunk insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// GetChunksByChurch returns every chunk belonging to the given church,
// ordered by document and sequence index.
func (s *SQLiteStore) GetChunksByChurch(churchID string) ([]Chunk, error) {
	rows, err := s.db.Query(
		"SELECT id, church_id, document_id, seq, content, embedding_json FROM chunks WHERE church_id = ? ORDER BY document_id, seq",
		churchID,
	)
	if err != nil {
		return nil, storageErr("chunk query", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		var embeddingJSON string
		if err := rows.Scan(&chunk.ID, &chunk.ChurchID, &chunk.DocumentID, &chunk.Seq, &chunk.Content, &embeddingJSON); err != nil {
			return nil, storageErr("chunk scan", err)
		}
		if err := json.Unmarshal([]byte(embeddingJSON), &chunk.Embedding); err != nil {
			log.Printf("Warning: failed to unmarshal embedding for chunk %d: %v. Chunk will be skipped in similarity search.", chunk.ID, err)
			chunk.Embedding = nil
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("chunk rows", err)
	}
	return chunks, nil
}

// ListDocuments returns the church's documents, newest first.
func (s *SQLiteStore) ListDocuments(churchID string) ([]Document, error) {
	rows, err := s.db.Query(
		"SELECT id, church_id, title, source_type, created_at FROM documents WHERE church_id = ? ORDER BY created_at DESC",
		churchID,
	)
	if err != nil {
		return nil, storageErr("document query", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.ChurchID, &doc.Title, &doc.SourceType, &doc.CreatedAt); err != nil {
			return nil, storageErr("document scan", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("document rows", err)
	}
	return docs, nil
}

// DeleteDocument removes a document and, through the cascade, its chunks.
// The church id is part of the predicate so one tenant cannot delete
// another's documents. Returns false when nothing matched.
func (s *SQLiteStore) DeleteDocument(documentID, churchID string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM documents WHERE id = ? AND church_id = ?", documentID, churchID)
	if err != nil {
		return false, storageErr("document delete", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// SearchFAQs returns up to limit FAQ entries whose question contains needle,
// case-insensitively, in store-native order. An empty result is not an error.
// LIKE metacharacters in the needle are escaped so user input stays a literal
// substring test.
func (s *SQLiteStore) SearchFAQs(churchID, needle string, limit int) ([]FAQ, error) {
	rows, err := s.db.Query(
		`SELECT id, church_id, question, answer FROM faqs WHERE church_id = ? AND LOWER(question) LIKE '%' || LOWER(?) || '%' ESCAPE '\' LIMIT ?`,
		churchID, escapeLike(needle), limit,
	)
	if err != nil {
		return nil, storageErr("faq query", err)
	}
	defer rows.Close()

	var faqs []FAQ
	for rows.Next() {
		var faq FAQ
		if err := rows.Scan(&faq.ID, &faq.ChurchID, &faq.Question, &faq.Answer); err != nil {
			return nil, storageErr("faq scan", err)
		}
		faqs = append(faqs, faq)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("faq rows", err)
	}
	return faqs, nil
}

// escapeLike neutralizes the LIKE metacharacters % and _ (and the escape
// character itself) in a search needle.
func escapeLike(needle string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(needle)
}

// CreateFAQ inserts a FAQ entry for the admin management surface.
func (s *SQLiteStore) CreateFAQ(faq *FAQ) error {
	res, err := s.db.Exec(
		"INSERT INTO faqs (church_id, question, answer) VALUES (?, ?, ?)",
		faq.ChurchID, faq.Question, faq.Answer,
	)
	if err != nil {
		return storageErr("faq insert", err)
	}
	faq.ID, _ = res.LastInsertId()
	return nil
}

// ListFAQs returns every FAQ entry for the church.
func (s *SQLiteStore) ListFAQs(churchID string) ([]FAQ, error) {
	rows, err := s.db.Query("SELECT id, church_id, question, answer FROM faqs WHERE church_id = ? ORDER BY id", churchID)
	if err != nil {
		return nil, storageErr("faq query", err)
	}
	defer rows.Close()

	var faqs []FAQ
	for rows.Next() {
		var faq FAQ
		if err := rows.Scan(&faq.ID, &faq.ChurchID, &faq.Question, &faq.Answer); err != nil {
			return nil, storageErr("faq scan", err)
		}
		faqs = append(faqs, faq)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("faq rows", err)
	}
	return faqs, nil
}
