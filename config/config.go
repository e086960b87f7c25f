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


// Package config loads the libris configuration from YAML, with
// defaults for every section and fail-fast validation of the closed
// provider and strategy sets.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/poiesic/libris/ai"
	"github.com/poiesic/libris/chunking"
	"gopkg.in/yaml.v3"
)

// StorageConfig locates the badger database.
type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// ProviderConfig selects and configures the embedding provider.
// The API key is never stored in the file; APIKeyEnv names the
// environment variable holding it.
type ProviderConfig struct {
	Name       string `yaml:"name"`
	Host       string `yaml:"host"`
	Model      string `yaml:"model"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Dimensions int    `yaml:"dimensions"`
}

// ChunkingConfig selects and parameterizes the chunking strategy.
// Overlap is a pointer so an explicit `overlap: 0` survives defaulting;
// only an absent key takes the default.
type ChunkingConfig struct {
	Strategy   string `yaml:"strategy"`
	SizeLimit  int    `yaml:"size_limit"`
	WindowSize int    `yaml:"window_size"`
	Overlap    *int   `yaml:"overlap"`
}

// IngestionConfig tunes the pipeline's embedding stage.
type IngestionConfig struct {
	BatchSize      int     `yaml:"batch_size"`
	EmbedWorkers   int     `yaml:"embed_workers"`
	CallsPerSecond float64 `yaml:"calls_per_second"`
}

// SearchConfig tunes the query path.
type SearchConfig struct {
	DistanceThreshold float32 `yaml:"distance_threshold"`
}

// ServiceConfig configures the HTTP query service.
type ServiceConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Storage   StorageConfig   `yaml:"storage"`
	Provider  ProviderConfig  `yaml:"provider"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Search    SearchConfig    `yaml:"search"`
	Service   ServiceConfig   `yaml:"service"`
}

// Load reads a config from the specified path. A missing file yields
// the defaults, not an error.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./libris.yaml first, then ~/.config/libris/libris.yaml.
// If neither exists it returns the defaults.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "libris.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	return Default(), "", nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "libris", "libris.yaml"), nil
}

// Default returns the full default configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "libris.db"
	}

	aiDefaults := ai.DefaultConfig()
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = aiDefaults.Provider
	}
	if cfg.Provider.Host == "" {
		cfg.Provider.Host = aiDefaults.Host
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = aiDefaults.Model
	}
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = "LIBRIS_API_KEY"
	}
	if cfg.Provider.Dimensions == 0 {
		cfg.Provider.Dimensions = aiDefaults.Dimensions
	}

	chunkDefaults := chunking.DefaultConfig()
	if cfg.Chunking.Strategy == "" {
		cfg.Chunking.Strategy = chunkDefaults.Strategy
	}
	if cfg.Chunking.SizeLimit == 0 {
		cfg.Chunking.SizeLimit = chunkDefaults.SizeLimit
	}
	if cfg.Chunking.WindowSize == 0 {
		cfg.Chunking.WindowSize = chunkDefaults.WindowSize
	}
	if cfg.Chunking.Overlap == nil {
		overlap := chunkDefaults.Overlap
		cfg.Chunking.Overlap = &overlap
	}

	if cfg.Ingestion.BatchSize == 0 {
		cfg.Ingestion.BatchSize = 16
	}
	if cfg.Ingestion.EmbedWorkers == 0 {
		cfg.Ingestion.EmbedWorkers = 2
	}
	if cfg.Ingestion.CallsPerSecond == 0 {
		cfg.Ingestion.CallsPerSecond = 4
	}

	if cfg.Search.DistanceThreshold == 0 {
		cfg.Search.DistanceThreshold = 0.5
	}

	if cfg.Service.Addr == "" {
		cfg.Service.Addr = ":8080"
	}
}

// AIConfig converts the provider section into an ai.Config, resolving
// the API key from the named environment variable.
func (c *AppConfig) AIConfig() *ai.Config {
	apiKey := os.Getenv(c.Provider.APIKeyEnv)
	if apiKey == "" {
		apiKey = "none"
	}
	cfg := ai.NewConfig(
		ai.WithProvider(c.Provider.Name),
		ai.WithHost(c.Provider.Host),
		ai.WithModel(c.Provider.Model),
		ai.WithAPIKey(apiKey),
		ai.WithDimensions(c.Provider.Dimensions),
	)
	cfg.Normalize()
	return cfg
}

// ChunkConfig converts the chunking section into a chunking.Config.
func (c *AppConfig) ChunkConfig() *chunking.Config {
	overlap := chunking.DefaultConfig().Overlap
	if c.Chunking.Overlap != nil {
		overlap = *c.Chunking.Overlap
	}
	return chunking.NewConfig(
		chunking.WithStrategy(c.Chunking.Strategy),
		chunking.WithSizeLimit(c.Chunking.SizeLimit),
		chunking.WithWindow(c.Chunking.WindowSize, overlap),
	)
}

// Validate checks the closed provider and strategy sets plus the
// numeric ranges. Unknown names fail here, at load time, rather than
// deep in a pipeline run.
func (c *AppConfig) Validate() error {
	if err := c.AIConfig().Validate(); err != nil {
		return err
	}
	if err := c.ChunkConfig().Validate(); err != nil {
		return err
	}
	return nil
}
