package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flockbase.app/assistant/internal/ai"
	"flockbase.app/assistant/internal/core"
	"flockbase.app/assistant/internal/store"
)

// IngestService is what the ingestion endpoint needs from the core.
type IngestService interface {
	Ingest(ctx context.Context, req core.IngestRequest) (*core.IngestResult, error)
}

// QueryService is what the chat endpoint needs from the core.
type QueryService interface {
	Answer(ctx context.Context, req core.QueryRequest) (string, error)
}

// AdminStore covers the direct FAQ/document management the admin UI performs.
type AdminStore interface {
	CreateFAQ(faq *store.FAQ) error
	ListFAQs(churchID string) ([]store.FAQ, error)
	ListDocuments(churchID string) ([]store.Document, error)
	DeleteDocument(documentID, churchID string) (bool, error)
}

type APIHandler struct {
	ingestService IngestService
	queryService  QueryService
	adminStore    AdminStore
}

func NewAPIHandler(ingest IngestService, query QueryService, admin AdminStore) *APIHandler {
	return &APIHandler{
		ingestService: ingest,
		queryService:  query,
		adminStore:    admin,
	}
}

type IngestRequest struct {
	ChurchID   string `json:"churchId"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	SourceType string `json:"sourceType,omitempty"`
}

type IngestResponse struct {
	OK         bool   `json:"ok"`
	DocumentID string `json:"documentId"`
	Count      int    `json:"count"`
}

func (h *APIHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.ingestService.Ingest(r.Context(), core.IngestRequest{
		ChurchID:   req.ChurchID,
		Title:      req.Title,
		Text:       req.Text,
		SourceType: req.SourceType,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		OK:         true,
		DocumentID: result.DocumentID,
		Count:      result.ChunkCount,
	})
}

type ChatRequest struct {
	Messages   []core.ChatMessage `json:"messages"`
	ChurchID   string             `json:"churchId"`
	ChurchName string             `json:"churchName"`
}

type ChatResponse struct {
	Message string `json:"message"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	answer, err := h.queryService.Answer(r.Context(), core.QueryRequest{
		ChurchID:   req.ChurchID,
		ChurchName: req.ChurchName,
		Messages:   req.Messages,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Message: answer})
}

type CreateFAQRequest struct {
	ChurchID string `json:"churchId"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (h *APIHandler) CreateFAQHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateFAQRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ChurchID == "" {
		writeError(w, &core.ValidationError{Field: "churchId"})
		return
	}
	if req.Question == "" {
		writeError(w, &core.ValidationError{Field: "question"})
		return
	}
	if req.Answer == "" {
		writeError(w, &core.ValidationError{Field: "answer"})
		return
	}

	faq := store.FAQ{
		ChurchID: req.ChurchID,
		Question: req.Question,
		Answer:   req.Answer,
	}
	if err := h.adminStore.CreateFAQ(&faq); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, faq)
}

func (h *APIHandler) ListFAQsHandler(w http.ResponseWriter, r *http.Request) {
	churchID := r.URL.Query().Get("churchId")
	if churchID == "" {
		writeError(w, &core.ValidationError{Field: "churchId"})
		return
	}

	faqs, err := h.adminStore.ListFAQs(churchID)
	if err != nil {
		writeError(w, err)
		return
	}
	if faqs == nil {
		faqs = []store.FAQ{}
	}
	writeJSON(w, http.StatusOK, faqs)
}

func (h *APIHandler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	churchID := r.URL.Query().Get("churchId")
	if churchID == "" {
		writeError(w, &core.ValidationError{Field: "churchId"})
		return
	}

	docs, err := h.adminStore.ListDocuments(churchID)
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *APIHandler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	churchID := r.URL.Query().Get("churchId")
	if churchID == "" {
		writeError(w, &core.ValidationError{Field: "churchId"})
		return
	}
	documentID := chi.URLParam(r, "documentID")

	deleted, err := h.adminStore.DeleteDocument(documentID, churchID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeJSONError(w, http.StatusNotFound, "document not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError converts an error from the core into the documented {error}
// body. Validation failures map to 400, upstream rate-limit and quota
// statuses are passed through so the caller can show a specific message,
// other upstream failures map to 502, and storage failures to 500.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *core.ValidationError
	var upstreamErr *ai.UpstreamServiceError
	var storageErr *store.StorageError

	switch {
	case errors.As(err, &validationErr):
		writeJSONError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &upstreamErr):
		status := http.StatusBadGateway
		if upstreamErr.StatusCode == http.StatusTooManyRequests || upstreamErr.StatusCode == http.StatusPaymentRequired {
			status = upstreamErr.StatusCode
		}
		log.Printf("Upstream service error: %v", err)
		writeJSONError(w, status, err.Error())
	case errors.As(err, &storageErr):
		log.Printf("Storage error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	default:
		log.Printf("Unhandled error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
