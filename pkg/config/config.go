package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hnswann/engine/pkg/hnsw"
)

// Config holds the two configuration groups the engine's core needs: build
// parameters for the HNSW construction phase and search parameters for the
// mmap-backed query path. Serving, tenancy, and storage concerns are out of
// scope for this package.
type Config struct {
	Builder BuilderConfig
	Search  SearchConfig
}

// BuilderConfig holds HNSW graph construction parameters.
type BuilderConfig struct {
	M              int // Bi-directional links per node (default: 16)
	EfConstruction int // Candidate list size during insertion (default: 200)
	LMax           int // Hard ceiling on layers a node can reach (default: 16)
	Dimensions     int // Vector dimensionality (default: 768)
	Seed           int64
}

// SearchConfig holds query-time parameters for the loaded index.
type SearchConfig struct {
	EfSearch int // Candidate list size during search (default: 100)
	Rerank   int // Number of coarse candidates kept for full-precision rerank (default: 40)
}

// IndexConfig converts the builder settings into an hnsw.IndexConfig ready
// to pass to hnsw.New.
func (b BuilderConfig) IndexConfig() hnsw.IndexConfig {
	return hnsw.IndexConfig{
		M:              b.M,
		EfConstruction: b.EfConstruction,
		LMax:           b.LMax,
		Seed:           b.Seed,
	}
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Builder: BuilderConfig{
			M:              16,
			EfConstruction: 200,
			LMax:           16,
			Dimensions:     768,
		},
		Search: SearchConfig{
			EfSearch: 100,
			Rerank:   40,
		},
	}
}

// LoadFromEnv loads configuration from environment variables, falling back
// to Default() for anything unset or unparsable.
func LoadFromEnv() *Config {
	cfg := Default()

	if m := os.Getenv("HNSWANN_BUILDER_M"); m != "" {
		if mVal, err := strconv.Atoi(m); err == nil {
			cfg.Builder.M = mVal
		}
	}
	if ef := os.Getenv("HNSWANN_BUILDER_EF_CONSTRUCTION"); ef != "" {
		if efVal, err := strconv.Atoi(ef); err == nil {
			cfg.Builder.EfConstruction = efVal
		}
	}
	if lMax := os.Getenv("HNSWANN_BUILDER_L_MAX"); lMax != "" {
		if l, err := strconv.Atoi(lMax); err == nil {
			cfg.Builder.LMax = l
		}
	}
	if dims := os.Getenv("HNSWANN_BUILDER_DIMENSIONS"); dims != "" {
		if d, err := strconv.Atoi(dims); err == nil {
			cfg.Builder.Dimensions = d
		}
	}
	if seed := os.Getenv("HNSWANN_BUILDER_SEED"); seed != "" {
		if s, err := strconv.ParseInt(seed, 10, 64); err == nil {
			cfg.Builder.Seed = s
		}
	}

	if ef := os.Getenv("HNSWANN_SEARCH_EF_SEARCH"); ef != "" {
		if efVal, err := strconv.Atoi(ef); err == nil {
			cfg.Search.EfSearch = efVal
		}
	}
	if rerank := os.Getenv("HNSWANN_SEARCH_RERANK"); rerank != "" {
		if r, err := strconv.Atoi(rerank); err == nil {
			cfg.Search.Rerank = r
		}
	}

	return cfg
}

// Validate checks if the configuration is sane.
func (c *Config) Validate() error {
	if c.Builder.M < 2 || c.Builder.M > 100 {
		return fmt.Errorf("invalid builder M: %d (recommended: 16)", c.Builder.M)
	}
	if c.Builder.EfConstruction < 10 {
		return fmt.Errorf("invalid builder efConstruction: %d (must be >= 10)", c.Builder.EfConstruction)
	}
	if c.Builder.LMax < 1 || c.Builder.LMax > 64 {
		return fmt.Errorf("invalid builder LMax: %d (recommended: 16)", c.Builder.LMax)
	}
	if c.Builder.Dimensions < 1 {
		return fmt.Errorf("invalid dimensions: %d (must be > 0)", c.Builder.Dimensions)
	}
	if c.Search.EfSearch < 1 {
		return fmt.Errorf("invalid search efSearch: %d (must be > 0)", c.Search.EfSearch)
	}
	if c.Search.Rerank < 1 {
		return fmt.Errorf("invalid search rerank: %d (must be > 0)", c.Search.Rerank)
	}

	return nil
}
