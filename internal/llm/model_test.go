package llm

import (
	"context"
	"testing"

	"github.com/raphaelgruber/beethoven-go/internal/config"
	"github.com/raphaelgruber/beethoven-go/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
)

func TestGenerate(t *testing.T) {
	mc := metrics.NewCollector()
	m := NewModelFromLLM(fake.NewFakeLLM([]string{"Good structure.\nSCORE:8"}), "fake-model", mc)

	out, err := m.Generate(context.Background(), "analyze this")
	require.NoError(t, err)

	assert.Equal(t, "Good structure.\nSCORE:8", out)
	assert.Equal(t, "fake-model", m.Model())

	snap := mc.Snapshot()
	require.NotNil(t, snap.LLMGenerate)
	assert.Equal(t, int64(1), snap.LLMGenerate.Count)
}

func TestGenerateError(t *testing.T) {
	m := NewModelFromLLM(fake.NewFakeLLM(nil), "fake-model", nil)

	_, err := m.Generate(context.Background(), "analyze this")
	assert.Error(t, err)
}

func TestNewModelValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"openrouter without key", config.Config{LLMProvider: config.ProviderOpenRouter}},
		{"openai without key", config.Config{LLMProvider: config.ProviderOpenAI}},
		{"anthropic without key", config.Config{LLMProvider: config.ProviderAnthropic}},
		{"unknown provider", config.Config{LLMProvider: "gpt-in-a-box"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModel(context.Background(), tt.cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestNewModelOpenRouter(t *testing.T) {
	m, err := NewModel(context.Background(), config.Config{
		LLMProvider:       config.ProviderOpenRouter,
		LLMModel:          "google/gemini-2.0-flash-exp:free",
		OpenRouterAPIKey:  "sk-or-test",
		OpenRouterBaseURL: "https://openrouter.ai/api/v1",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.0-flash-exp:free", m.Model())
}

func TestTokenUsage(t *testing.T) {
	in, out := tokenUsage(map[string]any{"PromptTokens": 120, "CompletionTokens": 40})
	assert.Equal(t, int64(120), in)
	assert.Equal(t, int64(40), out)

	in, out = tokenUsage(map[string]any{"InputTokens": float64(7), "OutputTokens": int64(3)})
	assert.Equal(t, int64(7), in)
	assert.Equal(t, int64(3), out)

	in, out = tokenUsage(nil)
	assert.Zero(t, in)
	assert.Zero(t, out)
}
