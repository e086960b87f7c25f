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
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/poiesic/libris/core"
)

// Fetcher retrieves a source document by URL. Implementations are
// black-box collaborators; the pipeline only sees the bytes or a
// fetch-category error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DefaultFetchTimeout bounds a single document download.
const DefaultFetchTimeout = 60 * time.Second

// HTTPFetcher downloads documents over HTTP(S).
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with the default timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: DefaultFetchTimeout},
	}
}

// NewHTTPFetcherWithClient creates a fetcher using the supplied client.
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	if client == nil {
		return NewHTTPFetcher()
	}
	return &HTTPFetcher{client: client}
}

// Fetch downloads the document at url. Any transport failure or
// non-success status is reported as a fetch error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.NewPipelineError(core.CategoryFetch,
			fmt.Errorf("building request for %s: %w", url, err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, core.NewPipelineError(core.CategoryFetch,
			fmt.Errorf("fetching %s: %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.NewPipelineError(core.CategoryFetch,
			fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewPipelineError(core.CategoryFetch,
			fmt.Errorf("reading body of %s: %w", url, err))
	}
	if len(data) == 0 {
		return nil, core.NewPipelineError(core.CategoryFetch,
			fmt.Errorf("fetching %s: %w", url, ErrEmptyDocument))
	}

	return data, nil
}
