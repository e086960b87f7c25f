// Package ollama implements ai.Provider against a local Ollama server.
package ollama

import (
	"context"
	"log/slog"

	"github.com/poiesic/libris/ai"
	"github.com/poiesic/libris/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Provider implements ai.Provider using a local Ollama model.
type Provider struct {
	embedder   embeddings.Embedder
	tableName  string
	dimensions int
	logger     *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a provider backed by an Ollama server.
// The config is validated before use.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	llm, err := ollama.New(
		ollama.WithServerURL(config.Host),
		ollama.WithModel(config.Model),
	)
	if err != nil {
		return nil, core.NewPipelineError(core.CategoryConfiguration, err)
	}

	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, core.NewPipelineError(core.CategoryConfiguration, err)
	}

	return &Provider{
		embedder:   embedder,
		tableName:  config.TableName(),
		dimensions: config.Dimensions,
		logger:     slog.Default().With("component", "ollama-provider"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (p *Provider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		p.logger.Error("failed to generate embedding", "err", err)
		return nil, core.NewPipelineError(core.CategoryEmbedding, err)
	}
	return vector, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (p *Provider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		p.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, core.NewPipelineError(core.CategoryEmbedding, err)
	}
	return vectors, nil
}

// Name returns the provider's configuration name.
func (p *Provider) Name() string {
	return ai.ProviderOllama
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
func (p *Provider) Close() error {
	return nil
}
