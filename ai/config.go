// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"fmt"
	"strings"

	"github.com/poiesic/libris/core"
)

// Provider names form a closed set. Unknown names are rejected at
// validation time, never defaulted.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderDummy  = "dummy"
)

// Config holds configuration for embedding providers.
type Config struct {
	// Provider is one of ProviderOpenAI, ProviderOllama, or ProviderDummy.
	Provider string

	// Host is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	Host string

	// Model is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	Model string

	// APIKey authenticates against the embedding service. Local
	// OpenAI-compatible services accept any non-empty value.
	APIKey string

	// Dimensions is the fixed length of the provider's vectors.
	Dimensions int
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithProvider selects the provider by name.
func WithProvider(name string) Option {
	return func(c *Config) {
		c.Provider = name
	}
}

// WithHost sets the embedding service host URL.
func WithHost(host string) Option {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the API credential.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimensions sets the expected vector dimensionality.
func WithDimensions(dims int) Option {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

// DefaultConfig returns a Config with sensible defaults for a local
// OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Provider:   ProviderOpenAI,
		Host:       "http://localhost:11434/v1",
		Model:      "embeddinggemma",
		APIKey:     "none",
		Dimensions: 768,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// TableName returns the chunk partition name for the configured provider.
func (c *Config) TableName() string {
	return PartitionFor(c.Provider)
}

// PartitionFor maps a provider name to its chunk partition name.
func PartitionFor(provider string) string {
	return "chunks_" + provider
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to the host if missing, which is required by
// most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
// The dummy provider needs no host and is left untouched.
func (c *Config) Normalize() {
	if c.Provider == ProviderDummy || c.Provider == ProviderOllama {
		return
	}
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/")
		c.Host = c.Host + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
// Validation failures are configuration errors and fail fast.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI, ProviderOllama:
		if c.Host == "" {
			return core.NewPipelineError(core.CategoryConfiguration,
				fmt.Errorf("ai config: Host is required for provider %q", c.Provider))
		}
		if c.Model == "" {
			return core.NewPipelineError(core.CategoryConfiguration,
				fmt.Errorf("ai config: Model is required for provider %q", c.Provider))
		}
	case ProviderDummy:
		// No external service to reach.
	default:
		return core.NewPipelineError(core.CategoryConfiguration,
			fmt.Errorf("%w: %q", core.ErrUnknownProvider, c.Provider))
	}

	if c.Dimensions < 1 {
		return core.NewPipelineError(core.CategoryConfiguration,
			fmt.Errorf("ai config: Dimensions must be positive, got %d", c.Dimensions))
	}
	return nil
}
