package badger

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/libris/core"
	"github.com/poiesic/libris/storage"
)

// ChunkRepository implements storage.SearchRepository for BadgerDB.
// Chunks live under per-partition key prefixes, one partition per
// embedding provider.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.SearchRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &ChunkRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *ChunkRepository) Close() error {
	return nil
}

// AddChunks writes a batch of chunks to the partition in one transaction.
func (r *ChunkRepository) AddChunks(ctx context.Context, partition string, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if partition == "" {
		return nil, storage.ErrEmptyPartition
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := writeChunks(tx, partition, chunks); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return chunks, err
}

// PersistBookChunks writes the book row and its chunk batch in one
// transaction, so a failed chunk write never leaves a dangling book row.
func (r *ChunkRepository) PersistBookChunks(ctx context.Context, book *core.Book, partition string, chunks ...*core.Chunk) error {
	if partition == "" {
		return storage.ErrEmptyPartition
	}
	if err := core.ValidateBook(book); err != nil {
		return err
	}
	if book.Id == 0 {
		book.Id = core.BookIDForURL(book.SourceURL)
	}
	if book.InsertedAt.IsZero() {
		book.InsertedAt = time.Now().UTC()
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeBookKey(book.Id)
		existing, err := readBook(tx, key)
		if err != nil {
			return err
		}
		if existing == nil {
			if err := tx.Set(key, storage.MarshalBook(book)); err != nil {
				return err
			}
		}
		if err := writeChunks(tx, partition, chunks); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// writeChunks stamps IDs and timestamps and writes the batch within tx.
func writeChunks(tx *badger.Txn, partition string, chunks []*core.Chunk) error {
	now := time.Now().UTC()
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk, 0); err != nil {
			return err
		}
		if chunk.Id == 0 {
			chunk.Id = core.ChunkID(partition, chunk.BookId, chunk.Ordinal)
		}
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = now
		}
		key := makeChunkKey(partition, chunk.BookId, chunk.Ordinal)
		if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
			return err
		}
	}
	return nil
}

// HasChunksForBook reports whether the book has chunks in the partition.
func (r *ChunkRepository) HasChunksForBook(ctx context.Context, bookID core.ID, partition string) (bool, error) {
	if partition == "" {
		return false, storage.ErrEmptyPartition
	}

	found := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeBookChunkPrefix(partition, bookID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		iter.Rewind()
		found = iter.Valid()
		return nil
	}, false)

	return found, err
}

// GetChunksForBook retrieves the book's chunks in ordinal order.
func (r *ChunkRepository) GetChunksForBook(ctx context.Context, bookID core.ID, partition string) ([]*core.Chunk, error) {
	if partition == "" {
		return nil, storage.ErrEmptyPartition
	}

	chunks := []*core.Chunk{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeBookChunkPrefix(partition, bookID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return err
				}
				chunks = append(chunks, chunk)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	return chunks, err
}

// DeleteChunksForBook removes the book's chunks from the partition.
func (r *ChunkRepository) DeleteChunksForBook(ctx context.Context, bookID core.ID, partition string) error {
	if partition == "" {
		return storage.ErrEmptyPartition
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeBookChunkPrefix(partition, bookID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// FindSimilar scans one provider partition and returns every chunk whose
// cosine distance to the query vector is strictly below maxDistance,
// ordered ascending by distance. The partition boundary guarantees a
// query never compares vectors from two providers.
func (r *ChunkRepository) FindSimilar(ctx context.Context, partition string, vector []float32, maxDistance float32) ([]*core.ChunkHit, error) {
	if partition == "" {
		return nil, storage.ErrEmptyPartition
	}
	if len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	hits := []*core.ChunkHit{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartitionPrefix(partition)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return err
				}
				if len(chunk.Vector) != len(vector) {
					r.backend.logger.Warn("skipping chunk with mismatched vector length",
						"chunk", chunk.Id, "partition", partition,
						"got", len(chunk.Vector), "want", len(vector))
					return nil
				}
				distance := storage.CosineDistance(vector, chunk.Vector)
				if distance < maxDistance {
					hits = append(hits, &core.ChunkHit{Chunk: chunk, Distance: distance})
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits, nil
}
