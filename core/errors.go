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


package core

import "errors"

// ErrorCategory classifies pipeline and search failures. A book's run is
// recorded under exactly one category in its FailedBookRecord.
type ErrorCategory string

const (
	// CategoryFetch covers failures downloading the source document.
	CategoryFetch ErrorCategory = "FetchError"

	// CategoryExtract covers failures extracting page text from the document.
	CategoryExtract ErrorCategory = "ExtractError"

	// CategoryChunking covers chunking strategy failures, including an
	// empty chunk list for non-empty input.
	CategoryChunking ErrorCategory = "ChunkingError"

	// CategoryEmbedding covers upstream embedding failures: auth,
	// rate-limit, network, and dimension mismatches.
	CategoryEmbedding ErrorCategory = "EmbeddingError"

	// CategoryPersistence covers storage write failures.
	CategoryPersistence ErrorCategory = "PersistenceError"

	// CategoryConfiguration covers unknown provider or strategy names and
	// cross-provider query mismatches. Configuration errors fail fast and
	// are never silently defaulted.
	CategoryConfiguration ErrorCategory = "ConfigurationError"
)

// Valid reports whether c is one of the defined categories.
func (c ErrorCategory) Valid() bool {
	switch c {
	case CategoryFetch, CategoryExtract, CategoryChunking,
		CategoryEmbedding, CategoryPersistence, CategoryConfiguration:
		return true
	}
	return false
}

// PipelineError wraps an underlying error with its category. It supports
// errors.Is and errors.As so callers can match either the category or
// the wrapped cause.
type PipelineError struct {
	Category ErrorCategory
	Err      error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return string(e.Category) + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err under the given category. A nil err yields
// an error carrying only the category.
func NewPipelineError(category ErrorCategory, err error) *PipelineError {
	return &PipelineError{Category: category, Err: err}
}

// CategoryOf returns the category of err if it is (or wraps) a
// PipelineError. Uncategorized errors report false.
func CategoryOf(err error) (ErrorCategory, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Category, true
	}
	return "", false
}

// Domain validation errors
var (
	// ErrInvalidBook indicates a Book failed validation.
	ErrInvalidBook = errors.New("invalid book")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyURL indicates a book's source URL is empty.
	ErrEmptyURL = errors.New("source URL cannot be empty")

	// ErrEmptyChunkText indicates a chunk's text is empty after coercion.
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")

	// ErrVectorDimensions indicates an embedding vector whose length does
	// not match the provider's declared dimensionality.
	ErrVectorDimensions = errors.New("vector dimensions do not match provider")

	// ErrUnknownProvider indicates a provider name outside the closed set.
	ErrUnknownProvider = errors.New("unknown embedding provider")

	// ErrUnknownStrategy indicates a chunking strategy name outside the closed set.
	ErrUnknownStrategy = errors.New("unknown chunking strategy")

	// ErrProviderMismatch indicates a query addressed to a provider other
	// than the one that embedded the candidate chunks.
	ErrProviderMismatch = errors.New("query provider does not match active provider")
)
