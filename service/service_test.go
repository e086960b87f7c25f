package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/libris/ai/dummy"
	"github.com/poiesic/libris/core"
	"github.com/poiesic/libris/search"
	storagebadger "github.com/poiesic/libris/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *dummy.Provider) {
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
	provider.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1, 0}, nil
	}

	ctx := context.Background()
	url := "https://example.com/opus.pdf"
	book := &core.Book{Id: core.BookIDForURL(url), SourceURL: url, Title: "Opus"}
	_, err = books.AddBook(ctx, book)
	require.NoError(t, err)
	_, err = chunks.AddChunks(ctx, provider.TableName(), &core.Chunk{
		BookId:   book.Id,
		Page:     3,
		Ordinal:  0,
		Text:     "a matching excerpt",
		Vector:   []float32{1, 0},
		Provider: provider.Name(),
	})
	require.NoError(t, err)

	searcher, err := search.NewSearcher(books, chunks, provider)
	require.NoError(t, err)

	svc, err := New(searcher)
	require.NoError(t, err)
	return svc, provider
}

func TestSearchGet(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=excerpt", nil)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Opus", resp.Results[0].Title)
	assert.Equal(t, "a matching excerpt", resp.Results[0].Text)
	assert.Equal(t, "https://example.com/opus.pdf", resp.Results[0].Ref)
	assert.NotContains(t, resp.Results[0].Ref, "#page=",
		"response must not expose the page locator")
	assert.InDelta(t, 0.0, resp.Results[0].Score, 1e-5)
}

func TestSearchPost(t *testing.T) {
	svc, _ := newTestService(t)

	body := strings.NewReader(`{"query": "excerpt", "provider": "dummy"}`)
	req := httptest.NewRequest(http.MethodPost, "/search", body)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 1)
}

func TestSearchZeroHitsIsNotAnError(t *testing.T) {
	svc, provider := newTestService(t)
	provider.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return []float32{0, 1}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/search?q=nothing", nil)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestSearchMissingQuery(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestSearchProviderMismatch(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=excerpt&provider=openai", nil)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	svc, provider := newTestService(t)
	provider.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return nil, core.NewPipelineError(core.CategoryEmbedding,
			context.DeadlineExceeded)
	}

	req := httptest.NewRequest(http.MethodGet, "/search?q=excerpt", nil)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearchBadJSON(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchMethodNotAllowed(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodDelete, "/search", nil)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewRequiresSearcher(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrSearcherRequired)
}
