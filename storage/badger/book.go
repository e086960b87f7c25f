package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/libris/core"
	"github.com/poiesic/libris/storage"
)

// BookRepository implements storage.BookRepository for BadgerDB.
type BookRepository struct {
	backend *Backend
}

var _ storage.BookRepository = (*BookRepository)(nil)

// NewBookRepository creates a new BookRepository.
func NewBookRepository(backend *Backend) (*BookRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &BookRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *BookRepository) Close() error {
	return nil
}

// AddBook adds a book to storage. The ID derives from the source URL.
func (r *BookRepository) AddBook(ctx context.Context, book *core.Book) (*core.Book, error) {
	if err := core.ValidateBook(book); err != nil {
		return nil, err
	}
	if book.Id == 0 {
		book.Id = core.BookIDForURL(book.SourceURL)
	}
	if book.InsertedAt.IsZero() {
		book.InsertedAt = time.Now().UTC()
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeBookKey(book.Id)

		// The URL is the natural key: an existing row wins.
		existing, err := readBook(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			*book = *existing
			return nil
		}

		if err := tx.Set(key, storage.MarshalBook(book)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return book, err
}

// GetBook retrieves a single book by ID.
func (r *BookRepository) GetBook(ctx context.Context, id core.ID) (*core.Book, error) {
	var result *core.Book
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readBook(tx, makeBookKey(id))
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

// GetBookByURL retrieves a book by its source URL.
func (r *BookRepository) GetBookByURL(ctx context.Context, url string) (*core.Book, error) {
	return r.GetBook(ctx, core.BookIDForURL(url))
}

// readBook reads and unmarshals a book, returning nil if the key is absent.
func readBook(tx *badger.Txn, key []byte) (*core.Book, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var book *core.Book
	err = item.Value(func(val []byte) error {
		book, err = storage.UnmarshalBook(val)
		return err
	})
	return book, err
}
