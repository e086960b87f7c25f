package ai

import (
	"context"

	"github.com/poiesic/libris/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider is a pluggable source of embeddings. All variants are
// substitutable without any change to pipeline or search logic; this is
// the system's central extensibility point.
//
// Vectors from different providers have incompatible dimensionality and
// semantics, so every provider owns a dedicated chunk partition named by
// TableName, and a similarity query never mixes partitions.
type Provider interface {
	Embedder

	// Name returns the provider's configuration name.
	Name() string

	// TableName returns the name of the chunk partition this provider
	// writes to and queries from.
	TableName() string

	// Dimensions returns the fixed length of this provider's vectors.
	Dimensions() int

	// Close releases resources held by the provider.
	// After Close is called, the provider should not be used.
	Close() error
}

// ChunkExistenceChecker is the narrow storage capability the
// provider-aware dedup check needs. storage.SearchRepository satisfies it.
type ChunkExistenceChecker interface {
	HasChunksForBook(ctx context.Context, bookID core.ID, partition string) (bool, error)
}

// HasEmbeddingsForBook reports whether the given provider has already
// embedded the book, by checking the provider's own partition. A book
// embedded by provider P is not considered embedded for provider Q.
func HasEmbeddingsForBook(ctx context.Context, p Provider, repo ChunkExistenceChecker, bookID core.ID) (bool, error) {
	return repo.HasChunksForBook(ctx, bookID, p.TableName())
}
