package ai

import (
	"fmt"
	"strings"
	"time"
)

// ProviderConfig selects and configures a Generator.
type ProviderConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// NewGenerator builds the configured provider. Gemini is the default.
func NewGenerator(cfg ProviderConfig) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "gemini":
		client, err := NewGeminiClient(cfg.APIKey, WithGeminiBaseURL(cfg.BaseURL), WithGeminiTimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(cfg.Model) == "" {
			return nil, fmt.Errorf("gemini generation model required")
		}
		return NewGeminiGenerator(client, cfg.Model), nil
	case "openai", "openai-compat":
		return NewOpenAIGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", provider)
	}
}
