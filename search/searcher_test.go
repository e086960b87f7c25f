package search

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/libris/ai/dummy"
	"github.com/poiesic/libris/core"
	"github.com/poiesic/libris/storage"
	storagebadger "github.com/poiesic/libris/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFixture struct {
	books    storage.BookRepository
	chunks   storage.SearchRepository
	provider *dummy.Provider
	searcher *Searcher
}

func newSearchFixture(t *testing.T, opts ...Option) *searchFixture {
	t.Helper()

	books, chunks, failed, backend, err := storagebadger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		failed.Close()
		chunks.Close()
		books.Close()
		backend.Close()
	})

	provider := dummy.New(2)
	// The query always embeds to the x axis so chunk distances are
	// controlled exactly by the seeded vectors.
	provider.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1, 0}, nil
	}

	searcher, err := NewSearcher(books, chunks, provider, opts...)
	require.NoError(t, err)

	return &searchFixture{
		books:    books,
		chunks:   chunks,
		provider: provider,
		searcher: searcher,
	}
}

func (fx *searchFixture) seedBook(t *testing.T, url, title string, chunks ...*core.Chunk) *core.Book {
	t.Helper()
	ctx := context.Background()

	book := &core.Book{
		Id:        core.BookIDForURL(url),
		SourceURL: url,
		Title:     title,
	}
	_, err := fx.books.AddBook(ctx, book)
	require.NoError(t, err)

	for _, chunk := range chunks {
		chunk.BookId = book.Id
		chunk.Provider = fx.provider.Name()
	}
	_, err = fx.chunks.AddChunks(ctx, fx.provider.TableName(), chunks...)
	require.NoError(t, err)

	return book
}

// Vectors against the [1,0] query: [1,0] is distance 0, [0.8,0.6] is
// 0.2, [0.6,0.8] is 0.4, [0,1] is exactly 1.

func TestSearchAggregatesByBook(t *testing.T) {
	fx := newSearchFixture(t)
	ctx := context.Background()

	fx.seedBook(t, "https://example.com/a.pdf", "Book A",
		&core.Chunk{Page: 1, Ordinal: 1, Text: "first excerpt", Vector: []float32{0.8, 0.6}},
		&core.Chunk{Page: 2, Ordinal: 3, Text: "second excerpt", Vector: []float32{1, 0}},
		&core.Chunk{Page: 3, Ordinal: 5, Text: "irrelevant", Vector: []float32{0, 1}},
	)
	fx.seedBook(t, "https://example.com/b.pdf", "Book B",
		&core.Chunk{Page: 7, Ordinal: 0, Text: "lone excerpt", Vector: []float32{0.6, 0.8}},
	)

	results, err := fx.searcher.Search(ctx, "whales", "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Book A ranks first on its closest hit.
	a := results[0]
	assert.Equal(t, "Book A", a.Title)
	assert.InDelta(t, 0.0, a.MinDistance, 1e-6)
	assert.Equal(t, 2, a.Hits)
	// Excerpts joined in reading order, not distance order.
	assert.Equal(t, "first excerpt"+Separator+"second excerpt", a.Text)
	// The internal ref points at the page of the closest hit.
	assert.Equal(t, "https://example.com/a.pdf#page=2", a.InternalRef)
	assert.Equal(t, "https://example.com/a.pdf", a.ExternalRef)

	b := results[1]
	assert.Equal(t, "Book B", b.Title)
	assert.InDelta(t, 0.4, b.MinDistance, 1e-3)
	assert.Equal(t, 1, b.Hits)
	assert.Equal(t, "lone excerpt", b.Text, "single hit emits no separator")
	assert.Equal(t, "https://example.com/b.pdf#page=7", b.InternalRef)
	assert.Equal(t, "https://example.com/b.pdf", b.ExternalRef)
}

func TestSearchZeroHits(t *testing.T) {
	fx := newSearchFixture(t)

	fx.seedBook(t, "https://example.com/far.pdf", "Far Away",
		&core.Chunk{Page: 1, Ordinal: 0, Text: "orthogonal", Vector: []float32{0, 1}},
	)

	results, err := fx.searcher.Search(context.Background(), "whales", "")
	require.NoError(t, err, "zero hits is not an error")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchThresholdIsStrict(t *testing.T) {
	// With a 0.4 threshold the chunk at exactly 0.4 is excluded.
	fx := newSearchFixture(t, WithDistanceThreshold(0.4))

	fx.seedBook(t, "https://example.com/edge.pdf", "Edge",
		&core.Chunk{Page: 1, Ordinal: 0, Text: "at the edge", Vector: []float32{0.6, 0.8}},
		&core.Chunk{Page: 1, Ordinal: 1, Text: "inside", Vector: []float32{0.8, 0.6}},
	)

	results, err := fx.searcher.Search(context.Background(), "whales", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "inside", results[0].Text)
}

func TestSearchProviderOverride(t *testing.T) {
	fx := newSearchFixture(t)
	ctx := context.Background()

	fx.seedBook(t, "https://example.com/a.pdf", "Book A",
		&core.Chunk{Page: 1, Ordinal: 0, Text: "excerpt", Vector: []float32{1, 0}},
	)

	// Matching override behaves like no override.
	results, err := fx.searcher.Search(ctx, "whales", fx.provider.Name())
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// A mismatched override is rejected, never silently executed.
	_, err = fx.searcher.Search(ctx, "whales", "openai")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProviderMismatch)
	category, ok := core.CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, core.CategoryConfiguration, category)
}

func TestSearchEmptyQuery(t *testing.T) {
	fx := newSearchFixture(t)

	_, err := fx.searcher.Search(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchEmbeddingErrorSurfaces(t *testing.T) {
	fx := newSearchFixture(t)
	embedErr := core.NewPipelineError(core.CategoryEmbedding, errors.New("upstream down"))
	fx.provider.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return nil, embedErr
	}

	_, err := fx.searcher.Search(context.Background(), "whales", "")
	require.Error(t, err)
	category, ok := core.CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, core.CategoryEmbedding, category)
}

func TestNewSearcherRequiresCollaborators(t *testing.T) {
	fx := newSearchFixture(t)

	_, err := NewSearcher(nil, fx.chunks, fx.provider)
	assert.ErrorIs(t, err, ErrBookRepositoryRequired)

	_, err = NewSearcher(fx.books, nil, fx.provider)
	assert.ErrorIs(t, err, ErrSearchRepositoryRequired)

	_, err = NewSearcher(fx.books, fx.chunks, nil)
	assert.ErrorIs(t, err, ErrProviderRequired)
}

func TestWithDistanceThresholdRejectsNonPositive(t *testing.T) {
	fx := newSearchFixture(t)

	_, err := NewSearcher(fx.books, fx.chunks, fx.provider, WithDistanceThreshold(0))
	require.Error(t, err)
	category, ok := core.CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, core.CategoryConfiguration, category)
}

// recordingMonitor captures each stage callback.
type recordingMonitor struct {
	query       string
	vector      []float32
	hits        int
	grouped     int
	finished    int
	startCalls  int
	finishCalls int
}

func (m *recordingMonitor) Start(query string) {
	m.startCalls++
	m.query = query
}

func (m *recordingMonitor) AfterQueryEmbedding(vector []float32) {
	m.vector = vector
}

func (m *recordingMonitor) AfterSimilaritySearch(hits []*core.ChunkHit) {
	m.hits = len(hits)
}

func (m *recordingMonitor) AfterGrouping(results []*core.AggregatedResult) {
	m.grouped = len(results)
}

func (m *recordingMonitor) Finish(results []*core.AggregatedResult) {
	m.finishCalls++
	m.finished = len(results)
}

func TestSearchWithMonitor(t *testing.T) {
	fx := newSearchFixture(t)

	fx.seedBook(t, "https://example.com/a.pdf", "Book A",
		&core.Chunk{Page: 1, Ordinal: 0, Text: "one", Vector: []float32{1, 0}},
		&core.Chunk{Page: 2, Ordinal: 1, Text: "two", Vector: []float32{0.8, 0.6}},
	)

	monitor := &recordingMonitor{}
	results, err := fx.searcher.SearchWithMonitor(context.Background(), "whales", "", monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 1, monitor.startCalls)
	assert.Equal(t, "whales", monitor.query)
	assert.Equal(t, []float32{1, 0}, monitor.vector)
	assert.Equal(t, 2, monitor.hits)
	assert.Equal(t, 1, monitor.grouped)
	assert.Equal(t, 1, monitor.finishCalls)
	assert.Equal(t, 1, monitor.finished)
}
