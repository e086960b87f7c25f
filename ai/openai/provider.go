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


// Package openai implements ai.Provider against OpenAI-compatible
// embedding APIs.
package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/libris/ai"
	"github.com/poiesic/libris/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider implements ai.Provider using OpenAI-compatible embedding APIs.
type Provider struct {
	embedder   embeddings.Embedder
	tableName  string
	dimensions int
	logger     *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a provider backed by an OpenAI-compatible API.
// The config is validated and normalized before use.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// "none" keeps local OpenAI-compatible services that skip
	// authentication happy.
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, core.NewPipelineError(core.CategoryConfiguration, err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, core.NewPipelineError(core.CategoryConfiguration, err)
	}

	return &Provider{
		embedder:   embedder,
		tableName:  config.TableName(),
		dimensions: config.Dimensions,
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (p *Provider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	p.logger.Debug("generating embedding for single text", "length", len(text))

	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		p.logger.Error("failed to generate embedding", "err", err)
		return nil, core.NewPipelineError(core.CategoryEmbedding, err)
	}
	return vector, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (p *Provider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	p.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		p.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, core.NewPipelineError(core.CategoryEmbedding, err)
	}
	return vectors, nil
}

// Name returns the provider's configuration name.
func (p *Provider) Name() string {
	return ai.ProviderOpenAI
}

// TableName returns the provider's chunk partition name.
func (p *Provider) TableName() string {
	return p.tableName
}

// Dimensions returns the provider's declared vector length.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying client doesn't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
