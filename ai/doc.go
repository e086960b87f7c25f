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


// Package ai defines the embedding provider abstraction used by the
// ingestion pipeline and the search path.
//
// A Provider turns chunk or query text into a fixed-length vector and
// carries its own identity: a name, a dedicated chunk partition, and a
// declared dimensionality. The pipeline and searcher depend only on the
// Provider interface, so variants are substitutable without any change
// to their logic.
//
// # Implementation Packages
//
//   - ai/openai: network-backed, any OpenAI-compatible embedding API
//   - ai/ollama: local-model-backed via an Ollama server
//   - ai/dummy:  deterministic vectors without external calls, for tests
//
// Provider selection is a configuration value validated against the
// closed set {openai, ollama, dummy}; an unknown name fails fast with a
// configuration error.
//
// # Provider-Aware Deduplication
//
// Each provider owns one chunk partition (TableName). A book may be
// embedded independently by multiple providers, but never twice by the
// same provider; HasEmbeddingsForBook checks exactly the active
// provider's partition.
//
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	done, err := ai.HasEmbeddingsForBook(ctx, provider, repo, bookID)
package ai
