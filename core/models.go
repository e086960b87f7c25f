package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// BookIDForURL derives a Book's ID from its source URL.
// The URL is the natural key of a book: the same URL always maps to the
// same ID, so a book is created at most once no matter how many
// providers later embed it.
func BookIDForURL(url string) ID {
	return IDFromContent(url)
}

// Page is one page of raw text extracted from a source document.
// Page numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// Book represents one ingested source document.
type Book struct {
	Id         ID
	SourceURL  string
	Title      string
	Filename   string
	InsertedAt time.Time
}

// Chunk is a contiguous slice of a book's text, the unit that receives
// one embedding vector. A chunk belongs to exactly one book and one
// embedding provider partition.
type Chunk struct {
	Id      ID
	BookId  ID
	Page    int // 1-based page the chunk originates from
	Ordinal int // position of the chunk within the book, 0-based

	// Text is the chunk contents and is always a flat string.
	// Tokens may arrive populated instead of Text from word-oriented
	// chunking paths; CoerceChunkText joins it into Text before
	// persistence.
	Text   string
	Tokens []string

	Vector     []float32
	Provider   string // name of the provider that produced Vector
	InsertedAt time.Time
}

// ChunkID derives a chunk's ID from its owning partition, book, and ordinal.
func ChunkID(partition string, bookID ID, ordinal int) ID {
	return IDFromContent(fmt.Sprintf("%s:%d:%d", partition, bookID, ordinal))
}

// FailedBookRecord tracks a book whose ingestion run ended in an
// unrecoverable error. Records are keyed by source URL and removed when
// a retry succeeds.
type FailedBookRecord struct {
	URL       string
	Category  ErrorCategory
	LastError string
	Attempts  int
	UpdatedAt time.Time
}

// ChunkHit is one similarity-query result: a chunk and its vector
// distance to the query. Lower distance means more similar.
// Hits are not persisted.
type ChunkHit struct {
	Chunk    *Chunk
	Distance float32
}

// AggregatedResult is one user-facing search result, aggregating all of
// a book's matching chunks. Not persisted.
type AggregatedResult struct {
	BookId ID
	Title  string

	// Text is the matching chunks' contents in reading order, joined with
	// a visible separator between discontinuous excerpts.
	Text string

	// MinDistance is the smallest distance among the book's hits and
	// orders results (ascending, most relevant book first).
	MinDistance float32

	// InternalRef locates the best hit down to the page. Backend
	// diagnostics only; never returned to users.
	InternalRef string

	// ExternalRef points at the source document without a page locator.
	ExternalRef string

	Hits int
}
