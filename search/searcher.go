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


package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/libris/ai"
	"github.com/poiesic/libris/core"
	"github.com/poiesic/libris/storage"
)

// DefaultDistanceThreshold is the similarity cutoff: only chunks whose
// distance to the query is strictly below it are hits. Lower is more
// similar.
const DefaultDistanceThreshold float32 = 0.5

// Separator marks the boundary between discontinuous excerpts of the
// same book in an aggregated result.
const Separator = " […] "

// Searcher aggregates per-chunk similarity hits into per-book results.
type Searcher struct {
	books     storage.BookRepository
	chunks    storage.SearchRepository
	provider  ai.Provider
	threshold float32
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDistanceThreshold overrides the default similarity cutoff.
func WithDistanceThreshold(threshold float32) Option {
	return func(s *Searcher) error {
		if threshold <= 0 {
			return core.NewPipelineError(core.CategoryConfiguration,
				fmt.Errorf("distance threshold must be positive, got %v", threshold))
		}
		s.threshold = threshold
		return nil
	}
}

// NewSearcher creates a new searcher bound to one provider.
func NewSearcher(
	books storage.BookRepository,
	chunks storage.SearchRepository,
	provider ai.Provider,
	opts ...Option,
) (*Searcher, error) {
	if books == nil {
		return nil, ErrBookRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrSearchRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	s := &Searcher{
		books:     books,
		chunks:    chunks,
		provider:  provider,
		threshold: DefaultDistanceThreshold,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs a semantic query and aggregates hits per book.
// providerOverride, when non-empty, must name the searcher's active
// provider; a mismatch is a configuration error, never silently
// executed against the wrong partition. Zero hits yield an empty
// slice and a nil error.
func (s *Searcher) Search(ctx context.Context, query, providerOverride string) ([]*core.AggregatedResult, error) {
	return s.SearchWithMonitor(ctx, query, providerOverride, nil)
}

// SearchWithMonitor is Search with stage callbacks for diagnostics.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query, providerOverride string, monitor SearchMonitor) ([]*core.AggregatedResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if err := s.checkProvider(providerOverride); err != nil {
		return nil, err
	}

	monitor.Start(query)

	vector, err := s.provider.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(vector)

	hits, err := s.chunks.FindSimilar(ctx, s.provider.TableName(), vector, s.threshold)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterSimilaritySearch(hits)

	results, err := s.aggregate(ctx, hits)
	if err != nil {
		return nil, err
	}
	monitor.AfterGrouping(results)

	monitor.Finish(results)
	return results, nil
}

// checkProvider rejects a cross-provider query. Vectors from different
// providers are incomparable, so an override naming anything but the
// active provider cannot be honored.
func (s *Searcher) checkProvider(override string) error {
	if override == "" || override == s.provider.Name() {
		return nil
	}
	return core.NewPipelineError(core.CategoryConfiguration,
		fmt.Errorf("%w: query requested provider %q but searcher uses %q",
			core.ErrProviderMismatch, override, s.provider.Name()))
}

// aggregate groups hits by book, orders each group in reading order,
// and ranks groups by their closest hit.
func (s *Searcher) aggregate(ctx context.Context, hits []*core.ChunkHit) ([]*core.AggregatedResult, error) {
	if len(hits) == 0 {
		return []*core.AggregatedResult{}, nil
	}

	groups := make(map[core.ID][]*core.ChunkHit)
	for _, hit := range hits {
		groups[hit.Chunk.BookId] = append(groups[hit.Chunk.BookId], hit)
	}

	results := make([]*core.AggregatedResult, 0, len(groups))
	for bookID, group := range groups {
		book, err := s.books.GetBook(ctx, bookID)
		if err != nil {
			s.logger.Error("error retrieving book for hit group", "bookID", bookID, "err", err)
			return nil, err
		}

		// Reading order for display, not distance order.
		sort.Slice(group, func(i, j int) bool {
			if group[i].Chunk.Page != group[j].Chunk.Page {
				return group[i].Chunk.Page < group[j].Chunk.Page
			}
			return group[i].Chunk.Ordinal < group[j].Chunk.Ordinal
		})

		texts := make([]string, len(group))
		minDistance := group[0].Distance
		bestPage := group[0].Chunk.Page
		for i, hit := range group {
			texts[i] = hit.Chunk.Text
			if hit.Distance < minDistance {
				minDistance = hit.Distance
				bestPage = hit.Chunk.Page
			}
		}

		results = append(results, &core.AggregatedResult{
			BookId:      bookID,
			Title:       book.Title,
			Text:        strings.Join(texts, Separator),
			MinDistance: minDistance,
			InternalRef: fmt.Sprintf("%s#page=%d", book.SourceURL, bestPage),
			ExternalRef: book.SourceURL,
			Hits:        len(group),
		})
	}

	// Most relevant book first; ties broken by ID for determinism.
	sort.Slice(results, func(i, j int) bool {
		if results[i].MinDistance != results[j].MinDistance {
			return results[i].MinDistance < results[j].MinDistance
		}
		return results[i].BookId < results[j].BookId
	})

	return results, nil
}

// Threshold returns the configured distance cutoff.
func (s *Searcher) Threshold() float32 {
	return s.threshold
}

// Provider returns the name of the active provider.
func (s *Searcher) Provider() string {
	return s.provider.Name()
}
