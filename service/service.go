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


// Package service exposes the query path over HTTP. The service handle
// is built once at startup and never mutated while serving; each
// request runs its own embedding and similarity query.
//
// Responses carry the external, page-agnostic reference only. The
// internal page-qualified reference stays in the server logs.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/libris/core"
	"github.com/poiesic/libris/search"
)

// ErrSearcherRequired is returned when a searcher is not provided.
var ErrSearcherRequired = errors.New("searcher required")

// Service handles search requests against one searcher.
type Service struct {
	searcher *search.Searcher
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a search service.
func New(searcher *search.Searcher, opts ...Option) (*Service, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	s := &Service{
		searcher: searcher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SearchRequest is the JSON body of a POST /search request. GET
// requests carry the same fields as query parameters q and provider.
type SearchRequest struct {
	Query    string `json:"query"`
	Provider string `json:"provider,omitempty"`
}

// SearchResult is one user-facing result. Ref deliberately omits the
// page locator.
type SearchResult struct {
	Title string  `json:"title,omitempty"`
	Text  string  `json:"text"`
	Ref   string  `json:"ref"`
	Score float32 `json:"score"`
}

// SearchResponse wraps the ordered result list. An empty Results array
// is a successful response, distinct from an error.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the HTTP handler for the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", s.handleSearch)
	return mux
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest

	switch r.Method {
	case http.MethodGet:
		req.Query = r.URL.Query().Get("q")
		req.Provider = r.URL.Query().Get("provider")
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := s.searcher.Search(r.Context(), req.Query, req.Provider)
	if err != nil {
		if category, ok := core.CategoryOf(err); ok && category == core.CategoryConfiguration {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, search.ErrEmptyQuery) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search request failed", "query", req.Query, "err", err)
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	response := SearchResponse{Results: make([]SearchResult, 0, len(results))}
	for _, result := range results {
		// The page-qualified ref is logged, never returned.
		s.logger.Debug("search hit",
			"query", req.Query, "ref", result.InternalRef,
			"distance", result.MinDistance, "hits", result.Hits)

		response.Results = append(response.Results, SearchResult{
			Title: result.Title,
			Text:  result.Text,
			Ref:   result.ExternalRef,
			Score: result.MinDistance,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("error encoding search response", "err", err)
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: message}); err != nil {
		s.logger.Error("error encoding error response", "err", err)
	}
}

// ListenAndServe runs the HTTP server until the context is canceled.
func (s *Service) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	s.logger.Info("search service listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
