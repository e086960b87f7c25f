package core

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBook(t *testing.T) {
	url := "https://example.com/whale.pdf"

	t.Run("valid", func(t *testing.T) {
		book := &Book{Id: BookIDForURL(url), SourceURL: url, Title: "Whale"}
		assert.NoError(t, ValidateBook(book))
	})

	t.Run("nil book", func(t *testing.T) {
		err := ValidateBook(nil)
		assert.ErrorIs(t, err, ErrInvalidBook)
	})

	t.Run("empty url", func(t *testing.T) {
		err := ValidateBook(&Book{Title: "Whale"})
		assert.ErrorIs(t, err, ErrEmptyURL)
	})

	t.Run("id not derived from url", func(t *testing.T) {
		err := ValidateBook(&Book{Id: 42, SourceURL: url})
		assert.ErrorIs(t, err, ErrInvalidBook)
	})
}

func TestValidateChunk(t *testing.T) {
	bookID := BookIDForURL("https://example.com/whale.pdf")

	t.Run("valid", func(t *testing.T) {
		chunk := &Chunk{BookId: bookID, Text: "Call me Ishmael.", Vector: []float32{1, 2, 3}}
		assert.NoError(t, ValidateChunk(chunk, 3))
	})

	t.Run("empty text", func(t *testing.T) {
		err := ValidateChunk(&Chunk{BookId: bookID}, 3)
		assert.ErrorIs(t, err, ErrEmptyChunkText)
	})

	t.Run("missing book id", func(t *testing.T) {
		err := ValidateChunk(&Chunk{Text: "x"}, 3)
		assert.ErrorIs(t, err, ErrInvalidChunk)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		chunk := &Chunk{BookId: bookID, Text: "x", Vector: []float32{1, 2}}
		err := ValidateChunk(chunk, 3)
		assert.ErrorIs(t, err, ErrVectorDimensions)
	})

	t.Run("empty vector is a mismatch", func(t *testing.T) {
		chunk := &Chunk{BookId: bookID, Text: "x", Vector: []float32{}}
		err := ValidateChunk(chunk, 3)
		assert.ErrorIs(t, err, ErrVectorDimensions)
	})

	t.Run("missing vector is a mismatch", func(t *testing.T) {
		chunk := &Chunk{BookId: bookID, Text: "x"}
		err := ValidateChunk(chunk, 3)
		assert.ErrorIs(t, err, ErrVectorDimensions)
	})

	t.Run("no declared dimensions skips the check", func(t *testing.T) {
		chunk := &Chunk{BookId: bookID, Text: "x"}
		assert.NoError(t, ValidateChunk(chunk, 0))
	})
}

func TestCoerceChunkText(t *testing.T) {
	t.Run("joins tokens and warns", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		chunk := &Chunk{BookId: 1, Ordinal: 2, Tokens: []string{"Call", "me", "Ishmael."}}
		CoerceChunkText(chunk, logger)

		assert.Equal(t, "Call me Ishmael.", chunk.Text)
		assert.Nil(t, chunk.Tokens)
		assert.Contains(t, buf.String(), "coerced")
	})

	t.Run("flat text untouched", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		chunk := &Chunk{BookId: 1, Text: "already a string"}
		CoerceChunkText(chunk, logger)

		assert.Equal(t, "already a string", chunk.Text)
		assert.Empty(t, buf.String())
	})

	t.Run("text wins over stale tokens", func(t *testing.T) {
		chunk := &Chunk{BookId: 1, Text: "kept", Tokens: []string{"ignored"}}
		CoerceChunkText(chunk, nil)
		assert.Equal(t, "kept", chunk.Text)
	})

	t.Run("coercion then validation passes", func(t *testing.T) {
		chunk := &Chunk{BookId: 1, Tokens: []string{"a", "b"}}
		CoerceChunkText(chunk, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
		require.NoError(t, ValidateChunk(chunk, 0))
	})
}
