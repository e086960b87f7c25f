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
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/poiesic/libris/core"
	"github.com/tmc/langchaingo/documentloaders"
)

// Extractor turns raw document bytes into page-indexed text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]core.Page, error)
}

// PDFExtractor extracts page text from PDF documents.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract parses the PDF and returns one Page per document page, in
// page order. Page numbers are 1-based.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) ([]core.Page, error) {
	if len(data) == 0 {
		return nil, core.NewPipelineError(core.CategoryExtract, ErrEmptyDocument)
	}

	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, core.NewPipelineError(core.CategoryExtract,
			fmt.Errorf("parsing pdf: %w", err))
	}
	if len(docs) == 0 {
		return nil, core.NewPipelineError(core.CategoryExtract, ErrNoPages)
	}

	pages := make([]core.Page, 0, len(docs))
	for i, doc := range docs {
		number := i + 1
		if p, ok := doc.Metadata["page"].(int); ok && p > 0 {
			number = p
		}
		pages = append(pages, core.Page{
			Number: number,
			Text:   doc.PageContent,
		})
	}

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].Number < pages[j].Number
	})

	return pages, nil
}
