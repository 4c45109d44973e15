package embedder

import (
	"context"
	"fmt"
	"strings"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/model"
)

// New builds the configured provider's client.
func New(ctx context.Context, cfg Config) (Client, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)

	case "ollama":
		// Ollama speaks the OpenAI embeddings API under /v1. It ignores the
		// API key but the client requires one.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL), nil

	default:
		return nil, model.NewConfigError("embedder", "unsupported provider: %s", cfg.Provider)
	}
}
