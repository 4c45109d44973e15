// Package config loads the TOML configuration and applies environment
// overrides for the secrets that should not live in the file.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/ann"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/blocking"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/cluster"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/embedding"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/persist"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/core/scoring"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/embedder"
	"github.com/ArthurKeen/arango-entity-resolution-sub003/internal/store"
)

// StoreConfig selects the backing store. Exactly the section matching
// Backend needs to be filled in; "memory" needs none.
type StoreConfig struct {
	Backend  string                `toml:"backend" validate:"required,oneof=arango memgraph memory"`
	Arango   *store.ArangoConfig   `toml:"arango"`
	Memgraph *store.MemgraphConfig `toml:"memgraph"`
}

// ANNConfig wraps the adapter configuration with an enable switch so
// deployments without embeddings skip the capability probe entirely.
type ANNConfig struct {
	Enabled bool `toml:"enabled"`
	ann.Config
}

// EmbedderConfig wraps the text-embedding provider selection.
type EmbedderConfig struct {
	Enabled bool                  `toml:"enabled"`
	Seed    embedder.SeederConfig `toml:"seed"`
	embedder.Config
}

type ServerConfig struct {
	Port string `toml:"port"`
	Mode string `toml:"mode"`
}

type Config struct {
	Store     StoreConfig                 `toml:"store"`
	Pipeline  core.ResolverConfig         `toml:"pipeline"`
	Blocking  []blocking.Config           `toml:"blocking"`
	Scoring   scoring.Config              `toml:"scoring"`
	ANN       ANNConfig                   `toml:"ann"`
	Edges     persist.EdgeWriterConfig    `toml:"edges"`
	Cluster   cluster.Config              `toml:"cluster"`
	Golden    persist.GoldenBuilderConfig `toml:"golden"`
	Embedding embedding.Config            `toml:"embedding"`
	Embedder  EmbedderConfig              `toml:"embedder"`
	Server    ServerConfig                `toml:"server"`
}

var validate = validator.New()

// Load reads and validates the configuration file, then overlays environment
// variables. Component-level validation still happens at construction; this
// only rejects files that cannot possibly wire up.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := validate.Struct(cfg.Store); err != nil {
		return nil, fmt.Errorf("invalid store configuration: %w", err)
	}
	switch cfg.Store.Backend {
	case "arango":
		if cfg.Store.Arango == nil {
			return nil, fmt.Errorf("store backend is arango but [store.arango] is missing")
		}
	case "memgraph":
		if cfg.Store.Memgraph == nil {
			return nil, fmt.Errorf("store backend is memgraph but [store.memgraph] is missing")
		}
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ARANGO_ENDPOINT"); v != "" && c.Store.Arango != nil {
		c.Store.Arango.Endpoint = v
	}
	if v := os.Getenv("ARANGO_PASSWORD"); v != "" && c.Store.Arango != nil {
		c.Store.Arango.Password = v
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" && c.Store.Memgraph != nil {
		c.Store.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" && c.Store.Memgraph != nil {
		c.Store.Memgraph.Password = v
	}
	if v := os.Getenv("EMBEDDER_PROVIDER"); v != "" {
		c.Embedder.Provider = v
	}
	if v := os.Getenv("EMBEDDER_API_KEY"); v != "" {
		c.Embedder.APIKey = v
	}
	if v := os.Getenv("EMBEDDER_BASE_URL"); v != "" {
		c.Embedder.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Embedder.Enabled && c.Embedder.Seed.Collection == "" {
		c.Embedder.Seed.Collection = c.Pipeline.RecordCollection
	}
}
