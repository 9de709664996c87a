package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flockbase.app/assistant/internal/ai"
	"flockbase.app/assistant/internal/ai/gemini"
	"flockbase.app/assistant/internal/ai/openai"
	"flockbase.app/assistant/internal/api"
	"flockbase.app/assistant/internal/config"
	"flockbase.app/assistant/internal/core"
	"flockbase.app/assistant/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	provider, err := newAIProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}
	defer provider.Close()

	ingestService := core.NewIngestionService(dbStore, provider.Embedder())
	queryService := core.NewQueryService(dbStore, dbStore, provider.Embedder(), provider.Completer(), cfg.ReplyLanguage)

	apiHandler := api.NewAPIHandler(ingestService, queryService, dbStore)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting gracefully")
}

func newAIProvider(cfg config.Config) (ai.Provider, error) {
	switch cfg.AIProvider {
	case "openai":
		return openai.NewProvider(openai.Config{
			APIKey:          cfg.OpenAIAPIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			EmbeddingModel:  cfg.EmbeddingModel,
			ChatModel:       cfg.ChatModel,
			MaxOutputTokens: cfg.MaxOutputTokens,
		})
	default:
		return gemini.NewProvider(context.Background(), gemini.Config{
			APIKey:          cfg.GeminiAPIKey,
			EmbeddingModel:  cfg.EmbeddingModel,
			ChatModel:       cfg.ChatModel,
			MaxOutputTokens: cfg.MaxOutputTokens,
		})
	}
}
