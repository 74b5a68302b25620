package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/totodo/allpassagent/core"
)

// Key prefixes for different data types
const (
	documentPrefix = "docrec"
	chunkPrefix    = "docchk"
	taskPrefix     = "taskq"
	taskSeqPrefix  = "taskqseq"
	taskIDSeq      = "taskidseq"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix:documentID:index, fixed width so iteration yields index order.
func makeChunkKey(docID core.ID, index int) []byte {
	prefix := chunkPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for document ID + 8 bytes for index
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}

// makePartialChunkKey generates a partial key for iterating a document's chunks.
// Format: prefix:documentID
func makePartialChunkKey(docID core.ID) []byte {
	prefix := chunkPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for document ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}

// makeTaskKey generates a composite key for a queued task.
// Format: prefix:queue:seq, fixed width so iteration yields FIFO order.
func makeTaskKey(queue core.TaskKind, seq uint64) []byte {
	prefix := taskPrefix + ":" + string(queue) + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for sequence number
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeQueuePrefix generates the iteration prefix for one queue.
func makeQueuePrefix(queue core.TaskKind) []byte {
	return []byte(taskPrefix + ":" + string(queue) + ":")
}

// makeQueueSeqName generates the sequence name backing one queue's FIFO order.
func makeQueueSeqName(queue core.TaskKind) string {
	return taskSeqPrefix + ":" + string(queue)
}
