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

// FailedBookRepository implements storage.FailedBookRepository for
// BadgerDB. Each record lives under its own key; the whole set is the
// only state shared across pipeline runs, and the backend's directory
// lock serializes writers.
type FailedBookRepository struct {
	backend *Backend
}

var _ storage.FailedBookRepository = (*FailedBookRepository)(nil)

// NewFailedBookRepository creates a new FailedBookRepository.
func NewFailedBookRepository(backend *Backend) (*FailedBookRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &FailedBookRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *FailedBookRepository) Close() error {
	return nil
}

// Upsert inserts or updates the record for its URL. The attempt count
// carries over from any existing record and is incremented; timestamp
// and category are refreshed.
func (r *FailedBookRepository) Upsert(ctx context.Context, record *core.FailedBookRecord) (*core.FailedBookRecord, error) {
	if record == nil || record.URL == "" {
		return nil, storage.ErrInvalidQuery
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFailedBookKey(record.URL)

		existing, err := readFailedBookRecord(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			record.Attempts = existing.Attempts
		}
		record.Attempts++
		record.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalFailedBookRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return record, err
}

// Remove deletes the record for the URL. Absent records are ignored.
func (r *FailedBookRepository) Remove(ctx context.Context, url string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeFailedBookKey(url)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves the record for the URL.
func (r *FailedBookRepository) Get(ctx context.Context, url string) (*core.FailedBookRecord, error) {
	var result *core.FailedBookRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readFailedBookRecord(tx, makeFailedBookKey(url))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// List enumerates all current records, ordered by URL.
func (r *FailedBookRepository) List(ctx context.Context) ([]*core.FailedBookRecord, error) {
	records := []*core.FailedBookRecord{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = failedBookRangePrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalFailedBookRecord(val)
				if err != nil {
					return err
				}
				records = append(records, record)
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

	sort.Slice(records, func(i, j int) bool {
		return records[i].URL < records[j].URL
	})
	return records, nil
}

// readFailedBookRecord reads a record, returning nil if the key is absent.
func readFailedBookRecord(tx *badger.Txn, key []byte) (*core.FailedBookRecord, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record *core.FailedBookRecord
	err = item.Value(func(val []byte) error {
		record, err = storage.UnmarshalFailedBookRecord(val)
		return err
	})
	return record, err
}
