package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted domain types. Hand-written against
// mus-go primitives; the schema is small enough that generated code is
// not worth the build step.
var (
	IDMUS               = idMUS{}
	BookMUS             = bookMUS{}
	ChunkMUS            = chunkMUS{}
	FailedBookRecordMUS = failedBookRecordMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (id ID, n int, err error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

type bookMUS struct{}

func (bookMUS) Marshal(b Book, bs []byte) (n int) {
	n = IDMUS.Marshal(b.Id, bs)
	n += ord.String.Marshal(b.SourceURL, bs[n:])
	n += ord.String.Marshal(b.Title, bs[n:])
	n += ord.String.Marshal(b.Filename, bs[n:])
	n += marshalTime(b.InsertedAt, bs[n:])
	return n
}

func (bookMUS) Unmarshal(bs []byte) (b Book, n int, err error) {
	var n1 int
	if b.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if b.SourceURL, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return b, n + n1, err
	}
	n += n1
	if b.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return b, n + n1, err
	}
	n += n1
	if b.Filename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return b, n + n1, err
	}
	n += n1
	b.InsertedAt, n1, err = unmarshalTime(bs[n:])
	return b, n + n1, err
}

func (bookMUS) Size(b Book) int {
	return IDMUS.Size(b.Id) +
		ord.String.Size(b.SourceURL) +
		ord.String.Size(b.Title) +
		ord.String.Size(b.Filename) +
		sizeTime(b.InsertedAt)
}

type chunkMUS struct{}

// Tokens is transient and deliberately not serialized: chunks are
// coerced to flat text before they reach storage.
func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(c.Id, bs)
	n += IDMUS.Marshal(c.BookId, bs[n:])
	n += varint.Int.Marshal(c.Page, bs[n:])
	n += varint.Int.Marshal(c.Ordinal, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += varint.Int.Marshal(len(c.Vector), bs[n:])
	for _, v := range c.Vector {
		n += raw.Float32.Marshal(v, bs[n:])
	}
	n += ord.String.Marshal(c.Provider, bs[n:])
	n += marshalTime(c.InsertedAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var n1 int
	if c.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if c.BookId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Page, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	var length int
	if length, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if length > 0 {
		c.Vector = make([]float32, length)
		for i := 0; i < length; i++ {
			if c.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
				return c, n + n1, err
			}
			n += n1
		}
	}
	if c.Provider, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	c.InsertedAt, n1, err = unmarshalTime(bs[n:])
	return c, n + n1, err
}

func (chunkMUS) Size(c Chunk) int {
	size := IDMUS.Size(c.Id) +
		IDMUS.Size(c.BookId) +
		varint.Int.Size(c.Page) +
		varint.Int.Size(c.Ordinal) +
		ord.String.Size(c.Text) +
		varint.Int.Size(len(c.Vector))
	for _, v := range c.Vector {
		size += raw.Float32.Size(v)
	}
	return size +
		ord.String.Size(c.Provider) +
		sizeTime(c.InsertedAt)
}

type failedBookRecordMUS struct{}

func (failedBookRecordMUS) Marshal(r FailedBookRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.URL, bs)
	n += ord.String.Marshal(string(r.Category), bs[n:])
	n += ord.String.Marshal(r.LastError, bs[n:])
	n += varint.Int.Marshal(r.Attempts, bs[n:])
	n += marshalTime(r.UpdatedAt, bs[n:])
	return n
}

func (failedBookRecordMUS) Unmarshal(bs []byte) (r FailedBookRecord, n int, err error) {
	var n1 int
	if r.URL, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	var category string
	if category, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	r.Category = ErrorCategory(category)
	n += n1
	if r.LastError, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.Attempts, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	r.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	return r, n + n1, err
}

func (failedBookRecordMUS) Size(r FailedBookRecord) int {
	return ord.String.Size(r.URL) +
		ord.String.Size(string(r.Category)) +
		ord.String.Size(r.LastError) +
		varint.Int.Size(r.Attempts) +
		sizeTime(r.UpdatedAt)
}

// Timestamps are stored as microseconds since the Unix epoch. The zero
// time round-trips as zero.
func marshalTime(t time.Time, bs []byte) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Marshal(micros, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micros == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Size(micros)
}
