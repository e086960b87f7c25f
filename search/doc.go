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


// Package search provides query-time semantic search over embedded book
// chunks.
//
// The Searcher embeds a free-text query with the active provider, runs a
// threshold similarity query against that provider's chunk partition,
// and aggregates the hits into one result per book: matching excerpts
// joined in reading order, ranked by the book's closest hit.
//
// Results carry two references: an internal page-qualified one for
// diagnostics, and an external page-agnostic one for users.
package search
