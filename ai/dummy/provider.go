// Package dummy implements a deterministic ai.Provider that never makes
// external calls. It doubles as the test embedder: behavior can be
// overridden per test through function fields.
package dummy

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"

	"github.com/poiesic/libris/ai"
)

// DefaultDimensions is the vector length used when the config leaves it unset.
const DefaultDimensions = 384

// Provider is a deterministic test double for ai.Provider. The same
// text always produces the same pseudo-random unit vector.
type Provider struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	dimensions int
	tableName  string
	callCount  atomic.Int64
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a dummy provider from the config.
// Note: returns the concrete type to allow test assertions and
// behavior injection via the function fields.
func NewProvider(config *ai.Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Provider{
		dimensions: config.Dimensions,
		tableName:  config.TableName(),
	}, nil
}

// New creates a dummy provider with the given dimensionality and the
// default partition name. Intended for tests.
func New(dimensions int) *Provider {
	if dimensions < 1 {
		dimensions = DefaultDimensions
	}
	return &Provider{
		dimensions: dimensions,
		tableName:  ai.PartitionFor(ai.ProviderDummy),
	}
}

// NewWithPartition creates a dummy provider writing to a specific
// partition. Useful in tests exercising more than one provider against
// the same store.
func NewWithPartition(dimensions int, partition string) *Provider {
	p := New(dimensions)
	p.tableName = partition
	return p
}

// EmbedText generates a deterministic embedding based on the text hash.
func (p *Provider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	p.callCount.Add(1)

	if p.EmbedTextFunc != nil {
		return p.EmbedTextFunc(ctx, text)
	}
	return deterministicVector(text, p.dimensions), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (p *Provider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	p.callCount.Add(1)

	if p.EmbedTextsFunc != nil {
		return p.EmbedTextsFunc(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicVector(text, p.dimensions)
	}
	return vectors, nil
}

// Name returns the provider's configuration name.
func (p *Provider) Name() string {
	return ai.ProviderDummy
}

// TableName returns the provider's chunk partition name.
func (p *Provider) TableName() string {
	return p.tableName
}

// Dimensions returns the provider's declared vector length.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}

// CallCount returns the number of times any embed method was called.
func (p *Provider) CallCount() int {
	return int(p.callCount.Load())
}

// Reset clears the call count and any injected behavior.
func (p *Provider) Reset() {
	p.callCount.Store(0)
	p.EmbedTextFunc = nil
	p.EmbedTextsFunc = nil
}

// deterministicVector creates a deterministic embedding vector from text.
// It uses an FNV hash to seed a small LCG so the same text always
// produces the same vector.
func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}

	// Normalize to unit length so cosine distances are well behaved.
	var sumSquares float32
	for _, v := range vector {
		sumSquares += v * v
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(float64(sumSquares)))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}
