// Package storage defines the repository interfaces the ingestion
// pipeline and search path depend on, together with the serialization
// helpers shared by backends.
//
// Three capabilities are separated: BookRepository owns book rows keyed
// by content-derived IDs, SearchRepository owns per-provider chunk
// partitions and the similarity query, and FailedBookRepository owns the
// retry bookkeeping. The reference implementation lives in
// storage/badger; the core treats the similarity operator as a black box
// that returns (chunk, distance) pairs ordered ascending by distance.
package storage
