// Package ingestion provides the pipeline that turns a book URL into a
// persisted set of embedded chunks.
//
// Each book runs through a per-book state machine: resolve (dedup
// check), fetch, extract, chunk, embed, persist. Books in a batch are
// processed one at a time; within a book, embedding runs concurrently
// over fixed-size chunk batches using a worker pool and a shared rate
// limiter.
//
// Persistence is all-or-nothing per (book, provider): an embedding
// failure for any batch fails the whole book and nothing is written.
// A failed book is recorded by URL and can be re-run with RetryFailed.
package ingestion
