package storage

import (
	"context"

	"github.com/poiesic/libris/core"
)

// BookRepository provides operations for managing book rows.
// Implementations must be thread-safe and support concurrent access.
type BookRepository interface {
	// AddBook adds a book to storage. The ID is derived from the source
	// URL if not already set, and InsertedAt is populated. Adding a book
	// that already exists is not an error; the stored row wins.
	AddBook(ctx context.Context, book *core.Book) (*core.Book, error)

	// GetBook retrieves a single book by ID.
	// Returns ErrNotFound if the book doesn't exist.
	GetBook(ctx context.Context, id core.ID) (*core.Book, error)

	// GetBookByURL retrieves a book by its source URL, the natural key.
	// Returns ErrNotFound if no book with that URL exists.
	GetBookByURL(ctx context.Context, url string) (*core.Book, error)

	// Close closes the repository and releases resources.
	Close() error
}

// SearchRepository provides per-provider chunk storage and the
// similarity query. Chunks are physically segregated per partition;
// one partition never sees another's vectors.
type SearchRepository interface {
	// AddChunks writes a batch of chunks to the given partition as a
	// single atomic unit. IDs and InsertedAt are populated.
	AddChunks(ctx context.Context, partition string, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// PersistBookChunks writes the book row and its chunk batch for one
	// partition in one transaction. Used by the ingestion pipeline so a
	// book row never outlives a failed chunk write.
	PersistBookChunks(ctx context.Context, book *core.Book, partition string, chunks ...*core.Chunk) error

	// HasChunksForBook reports whether any chunks exist for the book in
	// the given partition.
	HasChunksForBook(ctx context.Context, bookID core.ID, partition string) (bool, error)

	// GetChunksForBook retrieves the book's chunks from the given
	// partition in ordinal order. Returns an empty slice when none exist.
	GetChunksForBook(ctx context.Context, bookID core.ID, partition string) ([]*core.Chunk, error)

	// DeleteChunksForBook removes the book's chunks from the given partition.
	DeleteChunksForBook(ctx context.Context, bookID core.ID, partition string) error

	// FindSimilar returns every chunk in the partition whose distance to
	// the query vector is strictly below maxDistance, ordered ascending
	// by distance. A query matching nothing returns an empty slice.
	FindSimilar(ctx context.Context, partition string, vector []float32, maxDistance float32) ([]*core.ChunkHit, error)

	// Close closes the repository and releases resources.
	Close() error
}

// FailedBookRepository tracks books whose ingestion runs ended in an
// unrecoverable error. Records are keyed by source URL. Concurrent
// pipeline runs against the same store are not supported and must be
// serialized externally.
type FailedBookRepository interface {
	// Upsert inserts or updates the record for its URL, incrementing the
	// attempt count and refreshing the timestamp. Returns the stored record.
	Upsert(ctx context.Context, record *core.FailedBookRecord) (*core.FailedBookRecord, error)

	// Remove deletes the record for the URL.
	// Removing an absent record is not an error.
	Remove(ctx context.Context, url string) error

	// Get retrieves the record for the URL.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, url string) (*core.FailedBookRecord, error)

	// List enumerates all current records, ordered by URL.
	List(ctx context.Context) ([]*core.FailedBookRecord, error)

	// Close closes the repository and releases resources.
	Close() error
}
