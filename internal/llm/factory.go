package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/seecat/internal/config"
	"github.com/agenthands/seecat/internal/metrics"
)

// NewClient builds the provider client named by cfg and wraps it with a
// per-call timeout, logging and metrics.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger, m *metrics.Metrics) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)

	var client LLMClient
	switch provider {
	case "openai":
		client = NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Temperature)

	case "gemini":
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		client = c

	case "claude":
		client = NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens, cfg.Temperature)

	case "ollama":
		// Ollama is reached through its OpenAI-compatible API.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama" // ignored by Ollama, required by the client
		}
		client = NewOpenAIClient(apiKey, cfg.Model, baseURL, cfg.Temperature)

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}

	if logger != nil {
		logger.Info("llm client initialised",
			zap.String("provider", provider),
			zap.String("model", cfg.Model),
		)
	}

	return &Instrumented{
		Client:   client,
		Provider: provider,
		Timeout:  cfg.Timeout.Duration,
		Logger:   logger,
		Metrics:  m,
	}, nil
}
