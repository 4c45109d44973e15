// Package embedder provides text embedding clients for seeding record
// vectors from source fields before any match graph exists.
package embedder

import (
	"context"
)

// Client turns text into a vector. Implementations are safe for concurrent
// use.
type Client interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
