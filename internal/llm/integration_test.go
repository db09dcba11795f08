//go:build integration

package llm

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/seecat/internal/config"
)

func TestLiveProvider(t *testing.T) {
	_ = godotenv.Load("../../.env")

	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		t.Skip("Skipping integration test: LLM_PROVIDER not set")
	}
	cfg := config.LLMConfig{
		Provider:  provider,
		Model:     os.Getenv("LLM_MODEL"),
		APIKey:    os.Getenv("LLM_API_KEY"),
		BaseURL:   os.Getenv("LLM_BASE_URL"),
		MaxTokens: 256,
		Timeout:   config.Duration{Duration: 60 * time.Second},
	}

	ctx := context.Background()
	client, err := NewClient(ctx, cfg, nil, nil)
	require.NoError(t, err)
	defer client.(*Instrumented).Close()

	out, err := client.Generate(ctx, Prompt{
		System: `Reply with a JSON object {"CATEGORY": "TOOLS"} and nothing else.`,
		User:   `"SCREWDRIVER FLAT 6MM"`,
		JSON:   true,
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "TOOLS"), out)
}
