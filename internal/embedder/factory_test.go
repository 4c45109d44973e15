package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProvider(t *testing.T) {
	c, err := New(context.Background(), Config{Provider: "openai", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)
}

func TestNewOllamaUsesOpenAICompatibleClient(t *testing.T) {
	c, err := New(context.Background(), Config{Provider: "ollama", BaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)
}

func TestNewUnsupportedProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "claude"})
	assert.ErrorContains(t, err, "unsupported provider")
}

func TestToFloat64(t *testing.T) {
	out := toFloat64([]float32{1, 0.5})
	assert.Equal(t, []float64{1, 0.5}, out)
}
