package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	CompletionAPIKey  string
	CompletionBaseURL string
	CompletionModel   string
	DatabaseURL       string
	HTTPPort          string
	LogLevel          string
	JWTSecret         string
}

// CompletionConfigured reports whether the server-held completion API
// credential was provisioned at startup. A missing key is not fatal to the
// process: the chat proxy rejects each request with a configuration error
// instead.
func (c Config) CompletionConfigured() bool {
	return c.CompletionAPIKey != ""
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		CompletionAPIKey:  getEnv("COMPLETION_API_KEY", ""),
		CompletionBaseURL: getEnv("COMPLETION_BASE_URL", "https://api.openai.com/v1"),
		CompletionModel:   getEnv("COMPLETION_MODEL", "gpt-4o-mini"),
		DatabaseURL:       getEnv("DATABASE_URL", "learnloop_chat.db"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	if !AppConfig.CompletionConfigured() {
		log.Println("Warning: COMPLETION_API_KEY is not set, chat completions will be rejected")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
