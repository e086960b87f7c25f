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

import "errors"

var (
	// ErrBookRepositoryRequired is returned when a book repository is not provided.
	ErrBookRepositoryRequired = errors.New("book repository required")

	// ErrSearchRepositoryRequired is returned when a search repository is not provided.
	ErrSearchRepositoryRequired = errors.New("search repository required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrEmptyQuery is returned when the query text is blank.
	ErrEmptyQuery = errors.New("query is empty")
)
