package llm

import (
	"fmt"
	"strings"
)

// ProviderConfig selects and configures the chat backend.
type ProviderConfig struct {
	Provider  string
	APIKey    string
	AuthToken string // OAuth token (Bearer auth)
	Model     string
	BaseURL   string // OpenAI-compatible endpoint, used by ollama
}

// NewClient builds the configured provider's client. Every provider has
// a default model, so only the provider name is required.
func NewClient(cfg ProviderConfig) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, ""), nil
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.AuthToken, cfg.Model), nil
	case "ollama":
		model := cfg.Model
		if model == "" {
			model = "llama3.1"
		}
		return NewOpenAIClient("ollama", model, cfg.BaseURL), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
}
