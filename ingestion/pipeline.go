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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/libris/ai"
	"github.com/poiesic/libris/chunking"
	"github.com/poiesic/libris/core"
	"github.com/poiesic/libris/storage"
	"golang.org/x/time/rate"
)

// DefaultBatchSize is the number of chunks embedded per provider call.
const DefaultBatchSize = 16

// DefaultRateLimit is the maximum embedding calls per second.
const DefaultRateLimit = 4.0

// Pipeline runs the per-book ingestion state machine: resolve, fetch,
// extract, chunk, embed, persist. One Pipeline serves one provider;
// books are processed sequentially, embedding batches concurrently.
type Pipeline struct {
	books    storage.BookRepository
	chunks   storage.SearchRepository
	failed   storage.FailedBookRepository
	provider ai.Provider
	strategy chunking.Strategy

	fetcher   Fetcher
	extractor Extractor

	pool      *ants.Pool
	limiter   *rate.Limiter
	batchSize int
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per provider call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithRateLimit caps embedding calls per second across all workers.
func WithRateLimit(callsPerSecond float64) Option {
	return func(p *Pipeline) error {
		if callsPerSecond <= 0 {
			callsPerSecond = DefaultRateLimit
		}
		p.limiter = rate.NewLimiter(rate.Limit(callsPerSecond), 1)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithFetcher replaces the default HTTP fetcher.
func WithFetcher(fetcher Fetcher) Option {
	return func(p *Pipeline) error {
		if fetcher != nil {
			p.fetcher = fetcher
		}
		return nil
	}
}

// WithExtractor replaces the default PDF extractor.
func WithExtractor(extractor Extractor) Option {
	return func(p *Pipeline) error {
		if extractor != nil {
			p.extractor = extractor
		}
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	books storage.BookRepository,
	chunks storage.SearchRepository,
	failed storage.FailedBookRepository,
	provider ai.Provider,
	strategy chunking.Strategy,
	opts ...Option,
) (*Pipeline, error) {
	if books == nil {
		return nil, ErrBookRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrSearchRepositoryRequired
	}
	if failed == nil {
		return nil, ErrFailedBookRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if strategy == nil {
		return nil, ErrStrategyRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		books:     books,
		chunks:    chunks,
		failed:    failed,
		provider:  provider,
		strategy:  strategy,
		fetcher:   NewHTTPFetcher(),
		extractor: NewPDFExtractor(),
		pool:      pool,
		limiter:   rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Outcome records how a single book's run ended.
type Outcome struct {
	URL    string
	State  State
	BookID core.ID
	Chunks int

	// Category and Err are set only when State is StateFailed.
	Category core.ErrorCategory
	Err      error
}

// Run executes the state machine for a single book URL. The returned
// Outcome is always non-nil; a failure is reported in the Outcome, not
// as the error return, which is reserved for failed-record bookkeeping.
func (p *Pipeline) Run(ctx context.Context, bookURL string) *Outcome {
	outcome := &Outcome{URL: bookURL, State: StateNew}

	if strings.TrimSpace(bookURL) == "" {
		return p.fail(ctx, outcome,
			core.NewPipelineError(core.CategoryFetch, core.ErrEmptyURL))
	}

	// Resolve: a book already embedded by this provider is skipped.
	// The same book embedded by a different provider is not.
	outcome.State = StateResolving
	outcome.BookID = core.BookIDForURL(bookURL)

	book, err := p.books.GetBookByURL(ctx, bookURL)
	switch {
	case err == nil:
		embedded, checkErr := ai.HasEmbeddingsForBook(ctx, p.provider, p.chunks, book.Id)
		if checkErr != nil {
			return p.fail(ctx, outcome,
				core.NewPipelineError(core.CategoryPersistence, checkErr))
		}
		if embedded {
			outcome.State = StateSkipped
			p.logger.Info("book already embedded for provider, skipping",
				"url", bookURL, "provider", p.provider.Name())
			return outcome
		}
	case errors.Is(err, storage.ErrNotFound):
		book = nil
	default:
		return p.fail(ctx, outcome,
			core.NewPipelineError(core.CategoryPersistence, err))
	}

	outcome.State = StateFetching
	data, err := p.fetcher.Fetch(ctx, bookURL)
	if err != nil {
		return p.fail(ctx, outcome, err)
	}

	outcome.State = StateExtracting
	pages, err := p.extractor.Extract(ctx, data)
	if err != nil {
		return p.fail(ctx, outcome, err)
	}

	if book == nil {
		filename := filenameFromURL(bookURL)
		book = &core.Book{
			Id:        outcome.BookID,
			SourceURL: bookURL,
			Title:     titleFromFilename(filename),
			Filename:  filename,
		}
	}

	outcome.State = StateChunking
	pieces, err := p.strategy.Split(book.Title, pages)
	if err != nil {
		return p.fail(ctx, outcome,
			core.NewPipelineError(core.CategoryChunking, err))
	}
	if len(pieces) == 0 {
		return p.fail(ctx, outcome,
			core.NewPipelineError(core.CategoryChunking, ErrNoChunks))
	}

	chunks := make([]*core.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &core.Chunk{
			BookId:   book.Id,
			Page:     piece.Page,
			Ordinal:  i,
			Text:     piece.Text,
			Provider: p.provider.Name(),
		}
	}

	outcome.State = StateEmbedding
	if err := p.embedChunks(ctx, chunks); err != nil {
		return p.fail(ctx, outcome, err)
	}

	outcome.State = StatePersisting
	for _, chunk := range chunks {
		core.CoerceChunkText(chunk, p.logger)
		if err := core.ValidateChunk(chunk, p.provider.Dimensions()); err != nil {
			return p.fail(ctx, outcome,
				core.NewPipelineError(core.CategoryPersistence, err))
		}
	}
	if err := p.chunks.PersistBookChunks(ctx, book, p.provider.TableName(), chunks...); err != nil {
		return p.fail(ctx, outcome,
			core.NewPipelineError(core.CategoryPersistence, err))
	}

	outcome.State = StateDone
	outcome.Chunks = len(chunks)

	// A prior failure for this URL is resolved by the successful run.
	if err := p.failed.Remove(ctx, bookURL); err != nil {
		p.logger.Warn("failed to clear failure record", "url", bookURL, "err", err)
	}

	p.logger.Info("book ingested",
		"url", bookURL, "provider", p.provider.Name(), "chunks", len(chunks))
	return outcome
}

// embedChunks computes one vector per chunk, dispatching fixed-size
// batches to the worker pool. All-or-nothing: the first batch error
// fails the whole book and no vectors are kept.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []*core.Chunk) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()

			mu.Lock()
			abort := firstErr != nil
			mu.Unlock()
			if abort {
				return
			}

			if err := p.limiter.Wait(ctx); err != nil {
				p.recordEmbedError(&mu, &firstErr, err)
				return
			}

			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Text
			}

			vectors, err := p.provider.EmbedTexts(ctx, texts)
			if err != nil {
				p.recordEmbedError(&mu, &firstErr, err)
				return
			}
			if len(vectors) != len(batch) {
				p.recordEmbedError(&mu, &firstErr,
					fmt.Errorf("provider returned %d vectors for %d chunks", len(vectors), len(batch)))
				return
			}

			dims := p.provider.Dimensions()
			for i, vector := range vectors {
				if dims > 0 && len(vector) != dims {
					p.recordEmbedError(&mu, &firstErr,
						fmt.Errorf("provider returned a %d-dimension vector, want %d", len(vector), dims))
					return
				}
				batch[i].Vector = vector
			}
		})
		if submitErr != nil {
			wg.Done()
			p.recordEmbedError(&mu, &firstErr, submitErr)
			break
		}
	}

	wg.Wait()

	if firstErr != nil {
		if _, ok := core.CategoryOf(firstErr); ok {
			return firstErr
		}
		return core.NewPipelineError(core.CategoryEmbedding, firstErr)
	}
	return nil
}

func (p *Pipeline) recordEmbedError(mu *sync.Mutex, firstErr *error, err error) {
	mu.Lock()
	defer mu.Unlock()
	if *firstErr == nil {
		*firstErr = err
	}
}

// fail finalizes a run as StateFailed and upserts the failure record.
func (p *Pipeline) fail(ctx context.Context, outcome *Outcome, err error) *Outcome {
	outcome.State = StateFailed
	outcome.Err = err

	category, ok := core.CategoryOf(err)
	if !ok {
		category = core.CategoryPersistence
	}
	outcome.Category = category

	p.logger.Error("book ingestion failed",
		"url", outcome.URL, "category", string(category), "err", err)

	if _, upsertErr := p.failed.Upsert(ctx, &core.FailedBookRecord{
		URL:       outcome.URL,
		Category:  category,
		LastError: err.Error(),
	}); upsertErr != nil {
		p.logger.Error("failed to record book failure",
			"url", outcome.URL, "err", upsertErr)
	}

	return outcome
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// filenameFromURL extracts the trailing path element of the URL,
// falling back to the raw string when it does not parse.
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return path.Base(rawURL)
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		return parsed.Host
	}
	return name
}

// titleFromFilename derives a human-readable title from a filename by
// dropping the extension and normalizing separators.
func titleFromFilename(filename string) string {
	name := strings.TrimSuffix(filename, path.Ext(filename))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return filename
	}
	return name
}
