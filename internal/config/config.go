package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AIProvider      string // "gemini" or "openai"
	GeminiAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	EmbeddingModel  string
	ChatModel       string
	DatabaseURL     string
	HTTPPort        string
	LogLevel        string
	ReplyLanguage   string
	MaxOutputTokens int
}

// Load reads configuration from the environment (and a .env file if present)
// and returns it as an explicit value so that services receive their settings
// through constructors rather than package globals.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := Config{
		AIProvider:      getEnv("AI_PROVIDER", "gemini"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", ""),
		ChatModel:       getEnv("CHAT_MODEL", ""),
		DatabaseURL:     getEnv("DATABASE_URL", "flockbase_assistant.db"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		ReplyLanguage:   getEnv("REPLY_LANGUAGE", "français"),
		MaxOutputTokens: getEnvAsInt("MAX_OUTPUT_TOKENS", 600),
	}

	switch cfg.AIProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return Config{}, fmt.Errorf("GEMINI_API_KEY environment variable is required when AI_PROVIDER is gemini")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY environment variable is required when AI_PROVIDER is openai")
		}
	default:
		return Config{}, fmt.Errorf("unknown AI_PROVIDER %q (expected gemini or openai)", cfg.AIProvider)
	}

	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
