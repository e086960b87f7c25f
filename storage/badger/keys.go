package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/libris/core"
)

// Key prefixes for different data types
const (
	bookRecordPrefix  = "book"
	chunkRecordPrefix = "chk"
	failedBookPrefix  = "failbk"
)

// makeBookKey generates a key for a book by ID.
func makeBookKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", bookRecordPrefix, id))
}

// makeChunkKey generates a key for a chunk within a provider partition.
// Format: prefix:partition:bookID:ordinal with fixed-width BigEndian
// numbers so lexicographic iteration yields (book, ordinal) order.
func makeChunkKey(partition string, bookID core.ID, ordinal int) []byte {
	prefix := makeBookChunkPrefix(partition, bookID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ordinal))
	return buf
}

// makePartitionPrefix generates the key prefix covering one provider
// partition. Each partition is the physical realization of a per-provider
// chunk table: iteration never crosses into another provider's vectors.
func makePartitionPrefix(partition string) []byte {
	return []byte(chunkRecordPrefix + ":" + partition + ":")
}

// makeBookChunkPrefix generates the key prefix covering one book's
// chunks within a partition.
func makeBookChunkPrefix(partition string, bookID core.ID) []byte {
	prefix := makePartitionPrefix(partition)
	buf := make([]byte, len(prefix)+9)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(bookID))
	buf[offset+8] = ':'
	return buf
}

// makeFailedBookKey generates a key for a failed-book record by URL.
func makeFailedBookKey(url string) []byte {
	return []byte(failedBookPrefix + ":" + url)
}

// failedBookRangePrefix covers all failed-book records.
func failedBookRangePrefix() []byte {
	return []byte(failedBookPrefix + ":")
}
