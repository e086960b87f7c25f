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

import (
	"fmt"
	"log/slog"
	"strings"
)

// ValidateBook validates a Book according to domain rules.
//
// Validation rules:
//   - SourceURL must not be empty
//   - Id must match BookIDForURL(SourceURL) when set
func ValidateBook(book *Book) error {
	if book == nil {
		return fmt.Errorf("%w: book is nil", ErrInvalidBook)
	}

	if book.SourceURL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBook, ErrEmptyURL)
	}

	if book.Id != 0 && book.Id != BookIDForURL(book.SourceURL) {
		return fmt.Errorf("%w: id %d does not derive from URL %q", ErrInvalidBook, book.Id, book.SourceURL)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty (run CoerceChunkText first)
//   - BookId must be set
//   - Vector length must equal dimensions when dimensions are declared;
//     a missing or empty vector counts as a mismatch
//
// NOT validated:
//   - Id (derived at persistence time)
//   - Provider (stamped by the pipeline)
func ValidateChunk(chunk *Chunk, dimensions int) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkText)
	}

	if chunk.BookId == 0 {
		return fmt.Errorf("%w: book id is not set", ErrInvalidChunk)
	}

	if dimensions > 0 && len(chunk.Vector) != dimensions {
		return fmt.Errorf("%w: %w: got %d, want %d", ErrInvalidChunk, ErrVectorDimensions, len(chunk.Vector), dimensions)
	}

	return nil
}

// CoerceChunkText ensures chunk.Text is a flat string before persistence.
// A chunk that arrives with Tokens populated and no Text gets its tokens
// space-joined into Text, and the coercion is logged as a warning. The
// chunk is never dropped and the coercion never fails.
//
// A chunk text that is a word list indicates an upstream chunking bug;
// the coercion keeps the write path safe while the warning makes the
// bug visible.
func CoerceChunkText(chunk *Chunk, logger *slog.Logger) {
	if chunk == nil || chunk.Text != "" || len(chunk.Tokens) == 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	chunk.Text = strings.Join(chunk.Tokens, " ")
	chunk.Tokens = nil
	logger.Warn("coerced tokenized chunk text to string",
		"book", chunk.BookId, "ordinal", chunk.Ordinal, "length", len(chunk.Text))
}
