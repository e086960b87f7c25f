package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		id1 := IDFromContent("hello world")
		id2 := IDFromContent("hello world")
		assert.Equal(t, id1, id2)
	})

	t.Run("different content different ids", func(t *testing.T) {
		id1 := IDFromContent("hello world")
		id2 := IDFromContent("hello world!")
		assert.NotEqual(t, id1, id2)
	})

	t.Run("empty content", func(t *testing.T) {
		id := IDFromContent("")
		assert.NotZero(t, id)
	})
}

func TestBookIDForURL(t *testing.T) {
	url := "https://example.com/books/moby-dick.pdf"

	t.Run("url is the natural key", func(t *testing.T) {
		assert.Equal(t, BookIDForURL(url), BookIDForURL(url))
	})

	t.Run("distinct urls distinct books", func(t *testing.T) {
		other := "https://example.com/books/pequod.pdf"
		assert.NotEqual(t, BookIDForURL(url), BookIDForURL(other))
	})
}

func TestChunkID(t *testing.T) {
	bookID := BookIDForURL("https://example.com/a.pdf")

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, ChunkID("chunks_dummy", bookID, 3), ChunkID("chunks_dummy", bookID, 3))
	})

	t.Run("partition isolates ids", func(t *testing.T) {
		assert.NotEqual(t, ChunkID("chunks_openai", bookID, 0), ChunkID("chunks_ollama", bookID, 0))
	})

	t.Run("ordinal isolates ids", func(t *testing.T) {
		assert.NotEqual(t, ChunkID("chunks_dummy", bookID, 0), ChunkID("chunks_dummy", bookID, 1))
	})
}

func TestErrorCategory(t *testing.T) {
	for _, category := range []ErrorCategory{
		CategoryFetch, CategoryExtract, CategoryChunking,
		CategoryEmbedding, CategoryPersistence, CategoryConfiguration,
	} {
		assert.True(t, category.Valid(), string(category))
	}
	assert.False(t, ErrorCategory("SomethingElse").Valid())
}

func TestCategoryOf(t *testing.T) {
	t.Run("categorized", func(t *testing.T) {
		err := NewPipelineError(CategoryFetch, assert.AnError)
		category, ok := CategoryOf(err)
		assert.True(t, ok)
		assert.Equal(t, CategoryFetch, category)
	})

	t.Run("uncategorized", func(t *testing.T) {
		_, ok := CategoryOf(assert.AnError)
		assert.False(t, ok)
	})
}
