package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/libris/core"
	"github.com/poiesic/libris/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepos(t *testing.T) (storage.BookRepository, storage.SearchRepository) {
	t.Helper()
	bookRepo, chunkRepo, failedRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		failedRepo.Close()
		chunkRepo.Close()
		bookRepo.Close()
		backend.Close()
	})
	return bookRepo, chunkRepo
}

func testChunk(bookID core.ID, ordinal int, vector []float32) *core.Chunk {
	return &core.Chunk{
		BookId:   bookID,
		Page:     1 + ordinal/3,
		Ordinal:  ordinal,
		Text:     fmt.Sprintf("chunk %d", ordinal),
		Vector:   vector,
		Provider: "dummy",
	}
}

func TestAddChunksAndGetChunksForBook(t *testing.T) {
	_, repo := setupRepos(t)
	ctx := context.Background()
	bookID := core.BookIDForURL("https://example.com/a.pdf")

	added, err := repo.AddChunks(ctx, "chunks_dummy",
		testChunk(bookID, 0, []float32{1, 0}),
		testChunk(bookID, 1, []float32{0, 1}),
		testChunk(bookID, 2, []float32{1, 1}),
	)
	require.NoError(t, err)
	for _, chunk := range added {
		assert.NotZero(t, chunk.Id)
		assert.False(t, chunk.InsertedAt.IsZero())
	}

	chunks, err := repo.GetChunksForBook(ctx, bookID, "chunks_dummy")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Ordinal, "chunks come back in ordinal order")
	}
}

func TestAddChunksRejectsEmptyText(t *testing.T) {
	_, repo := setupRepos(t)
	ctx := context.Background()
	bookID := core.BookIDForURL("https://example.com/a.pdf")

	bad := testChunk(bookID, 1, []float32{0, 1})
	bad.Text = ""
	_, err := repo.AddChunks(ctx, "chunks_dummy",
		testChunk(bookID, 0, []float32{1, 0}), bad)
	require.ErrorIs(t, err, core.ErrEmptyChunkText)

	// The transaction rolled back, textless or not.
	has, err := repo.HasChunksForBook(ctx, bookID, "chunks_dummy")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPartitionIsolation(t *testing.T) {
	_, repo := setupRepos(t)
	ctx := context.Background()
	bookID := core.BookIDForURL("https://example.com/a.pdf")

	_, err := repo.AddChunks(ctx, "chunks_openai", testChunk(bookID, 0, []float32{1, 0}))
	require.NoError(t, err)

	// The openai partition sees the book; the ollama partition does not.
	has, err := repo.HasChunksForBook(ctx, bookID, "chunks_openai")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasChunksForBook(ctx, bookID, "chunks_ollama")
	require.NoError(t, err)
	assert.False(t, has)

	// Similarity queries never cross the partition boundary.
	hits, err := repo.FindSimilar(ctx, "chunks_ollama", []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFindSimilarThresholdAndOrder(t *testing.T) {
	_, repo := setupRepos(t)
	ctx := context.Background()
	bookID := core.BookIDForURL("https://example.com/a.pdf")

	// Distances to the query [1,0]: 0 (same), ~0.29 (45 degrees), 1 (orthogonal).
	_, err := repo.AddChunks(ctx, "chunks_dummy",
		testChunk(bookID, 0, []float32{0, 1}),
		testChunk(bookID, 1, []float32{1, 1}),
		testChunk(bookID, 2, []float32{2, 0}),
	)
	require.NoError(t, err)

	hits, err := repo.FindSimilar(ctx, "chunks_dummy", []float32{1, 0}, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, 2, hits[0].Chunk.Ordinal)
	assert.InDelta(t, 0, hits[0].Distance, 1e-5)
	assert.Equal(t, 1, hits[1].Chunk.Ordinal)
	assert.InDelta(t, 0.2929, hits[1].Distance, 1e-3)
}

func TestFindSimilarStrictThreshold(t *testing.T) {
	_, repo := setupRepos(t)
	ctx := context.Background()
	bookID := core.BookIDForURL("https://example.com/a.pdf")

	// Orthogonal vector sits exactly at distance 1.
	_, err := repo.AddChunks(ctx, "chunks_dummy", testChunk(bookID, 0, []float32{0, 1}))
	require.NoError(t, err)

	hits, err := repo.FindSimilar(ctx, "chunks_dummy", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, hits, "strictly less than the threshold")
}

func TestFindSimilarEmptyPartition(t *testing.T) {
	_, repo := setupRepos(t)

	hits, err := repo.FindSimilar(context.Background(), "chunks_dummy", []float32{1, 0}, 0.5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestPersistBookChunksAtomic(t *testing.T) {
	bookRepo, repo := setupRepos(t)
	ctx := context.Background()

	url := "https://example.com/atomic.pdf"
	book := &core.Book{SourceURL: url, Title: "atomic"}

	err := repo.PersistBookChunks(ctx, book, "chunks_dummy",
		testChunk(core.BookIDForURL(url), 0, []float32{1, 0}),
	)
	require.NoError(t, err)

	got, err := bookRepo.GetBookByURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "atomic", got.Title)

	has, err := repo.HasChunksForBook(ctx, got.Id, "chunks_dummy")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestDeleteChunksForBook(t *testing.T) {
	_, repo := setupRepos(t)
	ctx := context.Background()
	bookID := core.BookIDForURL("https://example.com/a.pdf")
	otherID := core.BookIDForURL("https://example.com/b.pdf")

	_, err := repo.AddChunks(ctx, "chunks_dummy",
		testChunk(bookID, 0, []float32{1, 0}),
		testChunk(otherID, 0, []float32{1, 0}),
	)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteChunksForBook(ctx, bookID, "chunks_dummy"))

	has, err := repo.HasChunksForBook(ctx, bookID, "chunks_dummy")
	require.NoError(t, err)
	assert.False(t, has)

	has, err = repo.HasChunksForBook(ctx, otherID, "chunks_dummy")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestEmptyPartitionRejected(t *testing.T) {
	_, repo := setupRepos(t)
	ctx := context.Background()

	_, err := repo.AddChunks(ctx, "", testChunk(1, 0, nil))
	assert.ErrorIs(t, err, storage.ErrEmptyPartition)

	_, err = repo.FindSimilar(ctx, "", []float32{1}, 0.5)
	assert.ErrorIs(t, err, storage.ErrEmptyPartition)
}
