package ingestion

import "errors"

var (
	// ErrBookRepositoryRequired is returned when a book repository is not provided.
	ErrBookRepositoryRequired = errors.New("book repository required")

	// ErrSearchRepositoryRequired is returned when a search repository is not provided.
	ErrSearchRepositoryRequired = errors.New("search repository required")

	// ErrFailedBookRepositoryRequired is returned when a failed-book repository is not provided.
	ErrFailedBookRepositoryRequired = errors.New("failed book repository required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrStrategyRequired is returned when a chunking strategy is not provided.
	ErrStrategyRequired = errors.New("chunking strategy required")

	// ErrEmptyDocument is returned when a fetched document contains no bytes.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrNoPages is returned when extraction yields no pages.
	ErrNoPages = errors.New("document has no pages")

	// ErrNoChunks is returned when chunking yields no chunks for a
	// non-empty document.
	ErrNoChunks = errors.New("chunking produced no chunks")
)
