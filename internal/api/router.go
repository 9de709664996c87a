package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// The chat widget and admin UI are served from other origins, so both
	// endpoints are CORS-open. Preflight OPTIONS requests get a 200.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		r.Post("/ingest", apiHandler.IngestHandler)
		r.Post("/chat", apiHandler.ChatHandler)

		// Admin management surface
		r.Post("/faqs", apiHandler.CreateFAQHandler)
		r.Get("/faqs", apiHandler.ListFAQsHandler)
		r.Get("/documents", apiHandler.ListDocumentsHandler)
		r.Delete("/documents/{documentID}", apiHandler.DeleteDocumentHandler)
	})

	return r
}
