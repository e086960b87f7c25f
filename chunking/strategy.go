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


package chunking

import (
	"fmt"

	"github.com/poiesic/libris/core"
)

// Strategy names form a closed set. Unknown names are rejected at
// construction time, never defaulted.
const (
	StrategySentenceSplitter = "sentence_splitter"
	StrategyWordOverlap      = "word_overlap"
)

// Piece is one chunk of text together with the page it originates from.
type Piece struct {
	Page int
	Text string
}

// Strategy splits a book's page-indexed raw text into ordered chunks.
//
// Strategies are pure: deterministic for identical input, independent of
// external state, and never return an empty sequence for non-empty
// input. Chunks are attributed to the page they start on; chunk
// boundaries never straddle pages.
type Strategy interface {
	// Name returns the strategy's configuration name.
	Name() string

	// Split chunks the pages in reading order.
	Split(title string, pages []core.Page) ([]Piece, error)
}

// Config selects and parameterizes a chunking strategy.
type Config struct {
	// Strategy is one of StrategySentenceSplitter or StrategyWordOverlap.
	Strategy string

	// SizeLimit is the sentence splitter's chunk size limit in runes.
	SizeLimit int

	// WindowSize and Overlap parameterize the word_overlap strategy,
	// both counted in words. WindowSize must exceed Overlap.
	WindowSize int
	Overlap    int
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithStrategy selects the strategy by name.
func WithStrategy(name string) Option {
	return func(c *Config) {
		c.Strategy = name
	}
}

// WithSizeLimit sets the sentence splitter's chunk size limit.
func WithSizeLimit(limit int) Option {
	return func(c *Config) {
		c.SizeLimit = limit
	}
}

// WithWindow sets the word_overlap window and overlap sizes.
func WithWindow(window, overlap int) Option {
	return func(c *Config) {
		c.WindowSize = window
		c.Overlap = overlap
	}
}

// DefaultConfig returns a Config with the sentence splitter defaults.
func DefaultConfig() *Config {
	return &Config{
		Strategy:   StrategySentenceSplitter,
		SizeLimit:  1000,
		WindowSize: 400,
		Overlap:    50,
	}
}

// NewConfig creates a Config with defaults and applies the provided options.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks the configuration against the closed strategy set.
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategySentenceSplitter:
		if c.SizeLimit < 1 {
			return core.NewPipelineError(core.CategoryConfiguration,
				fmt.Errorf("chunking config: size limit must be positive, got %d", c.SizeLimit))
		}
	case StrategyWordOverlap:
		if c.WindowSize < 1 {
			return core.NewPipelineError(core.CategoryConfiguration,
				fmt.Errorf("chunking config: window size must be positive, got %d", c.WindowSize))
		}
		if c.Overlap < 0 || c.Overlap >= c.WindowSize {
			return core.NewPipelineError(core.CategoryConfiguration,
				fmt.Errorf("chunking config: overlap %d must be smaller than window %d", c.Overlap, c.WindowSize))
		}
	default:
		return core.NewPipelineError(core.CategoryConfiguration,
			fmt.Errorf("%w: %q", core.ErrUnknownStrategy, c.Strategy))
	}
	return nil
}

// New constructs the configured Strategy, failing fast on an unknown
// name or invalid parameters.
func New(cfg *Config) (Strategy, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Strategy {
	case StrategySentenceSplitter:
		return &SentenceSplitter{sizeLimit: cfg.SizeLimit}, nil
	case StrategyWordOverlap:
		return &WordOverlap{window: cfg.WindowSize, overlap: cfg.Overlap}, nil
	}
	// Unreachable after Validate.
	return nil, core.NewPipelineError(core.CategoryConfiguration, core.ErrUnknownStrategy)
}
