package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LLMProvider    string // openai, anthropic, ollama
	AnthropicKey   string // API key (X-Api-Key header)
	AnthropicToken string // OAuth token (Authorization: Bearer header)
	OpenAIKey      string
	LLMModel       string
	OllamaBaseURL  string

	LineChannelSecret string
	LineChannelToken  string

	DatabasePath string
	DatabaseURL  string // Postgres DSN; when set, goals and tasks live there instead of sqlite

	HTTPAddr     string
	DashboardPIN string
	ReminderCron string
	Timezone     string

	MaxContextTokens int
}

func Load() *Config {
	_ = godotenv.Load() // ignore error if no .env

	return &Config{
		LLMProvider:    envOr("LLM_PROVIDER", "openai"),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicToken: os.Getenv("ANTHROPIC_AUTH_TOKEN"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		LLMModel:       os.Getenv("LLM_MODEL"),
		OllamaBaseURL:  envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),

		LineChannelSecret: os.Getenv("LINE_CHANNEL_SECRET"),
		LineChannelToken:  os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),

		DatabasePath: envOr("DATABASE_PATH", "./nova.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		HTTPAddr:     envOr("HTTP_ADDR", ":8080"),
		DashboardPIN: envOr("DASHBOARD_PIN", "1234"),
		ReminderCron: envOr("REMINDER_CRON", "0 9 * * *"),
		Timezone:     envOr("TIMEZONE", "Asia/Bangkok"),

		MaxContextTokens: envIntOr("MAX_CONTEXT_TOKENS", 60000),
	}
}

// Location resolves the configured timezone. An unknown name falls back
// to UTC with a warning rather than failing startup.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("config: unknown timezone %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("config: ignoring invalid %s=%q", key, v)
	}
	return fallback
}
