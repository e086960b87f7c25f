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


package storage

import (
	"github.com/poiesic/libris/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalBook serializes a Book to bytes.
func MarshalBook(book *core.Book) []byte {
	buf := make([]byte, core.BookMUS.Size(*book))
	core.BookMUS.Marshal(*book, buf)
	return buf
}

// UnmarshalBook deserializes a Book from bytes.
func UnmarshalBook(data []byte) (*core.Book, error) {
	book, _, err := core.BookMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalFailedBookRecord serializes a FailedBookRecord to bytes.
func MarshalFailedBookRecord(record *core.FailedBookRecord) []byte {
	buf := make([]byte, core.FailedBookRecordMUS.Size(*record))
	core.FailedBookRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalFailedBookRecord deserializes a FailedBookRecord from bytes.
func UnmarshalFailedBookRecord(data []byte) (*core.FailedBookRecord, error) {
	record, _, err := core.FailedBookRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
