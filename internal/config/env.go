package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultSystemPrompt = "You are a helpful assistant. Answer clearly and concisely. " +
	"When you use information from the web, rely on the sources you were given."

type Config struct {
	Port        string
	DatabaseURL string
	SslCertPath string
	JWTSecret   string
	LogLevel    slog.Level
	CORSOrigins []string

	LLMProvider   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	ChatModel     string
	SearchModel   string
	LLMTimeout    time.Duration
	SystemPrompt  string
	HistoryLimit  int

	ChatBaseCredits  int64
	WebSearchCredits int64

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
}

// LoadConfig loads the environment (and .env when present) into a Config.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "sqlite://supastart.db"),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		LogLevel:    parseLevel(getEnv("LOG_LEVEL", "info")),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		ChatModel:     getEnv("CHAT_MODEL", "gpt-4o-mini"),
		SearchModel:   getEnv("SEARCH_MODEL", "gpt-4o-mini-search-preview"),
		LLMTimeout:    time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		SystemPrompt:  getEnv("SYSTEM_PROMPT", defaultSystemPrompt),
		HistoryLimit:  getEnvInt("HISTORY_LIMIT", 20),

		ChatBaseCredits:  getEnvInt64("CHAT_BASE_CREDITS", 1),
		WebSearchCredits: getEnvInt64("WEB_SEARCH_CREDITS", 1),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "supastart-artifacts"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}
	if cfg.ChatBaseCredits < 0 || cfg.WebSearchCredits < 0 {
		return nil, fmt.Errorf("credit prices must not be negative")
	}
	return cfg, nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("env value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvInt64(key string, def int64) int64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("env value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func parseLevel(v string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
