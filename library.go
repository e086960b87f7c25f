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


package libris

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/libris/ai"
	"github.com/poiesic/libris/ai/dummy"
	"github.com/poiesic/libris/ai/ollama"
	"github.com/poiesic/libris/ai/openai"
	"github.com/poiesic/libris/chunking"
	"github.com/poiesic/libris/config"
	"github.com/poiesic/libris/core"
	"github.com/poiesic/libris/ingestion"
	"github.com/poiesic/libris/search"
	"github.com/poiesic/libris/storage"
	"github.com/poiesic/libris/storage/badger"
)

// Library is the process-wide handle over one store and one embedding
// provider. It wires repositories, pipeline, and searcher together.
type Library struct {
	backend    *badger.Backend
	bookRepo   storage.BookRepository
	chunkRepo  storage.SearchRepository
	failedRepo storage.FailedBookRepository
	provider   ai.Provider
	strategy   chunking.Strategy
	cfg        *config.AppConfig
	logger     *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*Library)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) LibraryOption {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Open validates the config and builds the full stack: storage backend,
// repositories, embedding provider, and chunking strategy.
func Open(cfg *config.AppConfig, opts ...LibraryOption) (*Library, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		return nil, err
	}

	bookRepo, err := badger.NewBookRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		bookRepo.Close()
		backend.Close()
		return nil, err
	}

	failedRepo, err := badger.NewFailedBookRepository(backend)
	if err != nil {
		chunkRepo.Close()
		bookRepo.Close()
		backend.Close()
		return nil, err
	}

	provider, err := newProvider(cfg.AIConfig())
	if err != nil {
		failedRepo.Close()
		chunkRepo.Close()
		bookRepo.Close()
		backend.Close()
		return nil, err
	}

	strategy, err := chunking.New(cfg.ChunkConfig())
	if err != nil {
		provider.Close()
		failedRepo.Close()
		chunkRepo.Close()
		bookRepo.Close()
		backend.Close()
		return nil, err
	}

	lib := &Library{
		backend:    backend,
		bookRepo:   bookRepo,
		chunkRepo:  chunkRepo,
		failedRepo: failedRepo,
		provider:   provider,
		strategy:   strategy,
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib, nil
}

// newProvider builds the configured embedding provider. The set of
// names is closed; anything else is a configuration error.
func newProvider(cfg *ai.Config) (ai.Provider, error) {
	switch cfg.Provider {
	case ai.ProviderOpenAI:
		return openai.NewProvider(cfg)
	case ai.ProviderOllama:
		return ollama.NewProvider(cfg)
	case ai.ProviderDummy:
		p, err := dummy.NewProvider(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, core.NewPipelineError(core.CategoryConfiguration,
			fmt.Errorf("%w: %q", core.ErrUnknownProvider, cfg.Provider))
	}
}

// Close tears the stack down in reverse construction order.
func (l *Library) Close() error {
	if err := l.provider.Close(); err != nil {
		l.logger.Error("error closing provider", "err", err)
	}

	if err := l.failedRepo.Close(); err != nil {
		l.logger.Error("error closing failed book repository", "err", err)
		return err
	}
	if err := l.chunkRepo.Close(); err != nil {
		l.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := l.bookRepo.Close(); err != nil {
		l.logger.Error("error closing book repository", "err", err)
		return err
	}

	if err := l.backend.Close(); err != nil {
		l.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// BookRepository exposes the book store.
func (l *Library) BookRepository() storage.BookRepository {
	return l.bookRepo
}

// SearchRepository exposes the chunk store.
func (l *Library) SearchRepository() storage.SearchRepository {
	return l.chunkRepo
}

// FailedBookRepository exposes the failure record store.
func (l *Library) FailedBookRepository() storage.FailedBookRepository {
	return l.failedRepo
}

// Provider exposes the active embedding provider.
func (l *Library) Provider() ai.Provider {
	return l.provider
}

// NewPipeline creates an ingestion pipeline preconfigured from the
// loaded config. Options given here override the config values.
func (l *Library) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithBatchSize(l.cfg.Ingestion.BatchSize),
		ingestion.WithPoolSize(l.cfg.Ingestion.EmbedWorkers),
		ingestion.WithRateLimit(l.cfg.Ingestion.CallsPerSecond),
		ingestion.WithLogger(l.logger),
	}
	return ingestion.NewPipeline(l.bookRepo, l.chunkRepo, l.failedRepo,
		l.provider, l.strategy, append(base, opts...)...)
}

// NewSearcher creates a searcher preconfigured from the loaded config.
func (l *Library) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{
		search.WithDistanceThreshold(l.cfg.Search.DistanceThreshold),
		search.WithLogger(l.logger),
	}
	return search.NewSearcher(l.bookRepo, l.chunkRepo, l.provider,
		append(base, opts...)...)
}
