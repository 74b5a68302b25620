package storage

import (
	"context"

	"github.com/totodo/allpassagent/core"
)

// DocumentRepository provides operations for managing documents and their
// chunks. Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// PutDocument inserts or overwrites a document record.
	// Sets UploadedAt if not already set.
	PutDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListDocuments retrieves all document records, ordered by ID.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// DeleteDocument removes a document and its stored chunks.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error

	// SetStatus updates the processing status of a document.
	// The error message is cleared unless status is failed.
	// Returns ErrNotFound if the document doesn't exist.
	SetStatus(ctx context.Context, id core.ID, status core.DocumentStatus, errMsg string) error

	// PutChunks replaces the stored chunk set of a document.
	// Chunk keys are derived from (document, index), so re-running ingestion
	// overwrites rather than duplicates.
	PutChunks(ctx context.Context, docID core.ID, chunks []core.Chunk) error

	// GetChunks retrieves the chunks of a document ordered by index.
	// Returns an empty slice if the document has no stored chunks.
	GetChunks(ctx context.Context, docID core.ID) ([]core.Chunk, error)

	// Close closes the repository and releases resources.
	Close() error
}

// TaskQueue is a durable FIFO queue keyed by pipeline stage. Queue state
// must survive process restart: every mutation is applied to the backing
// store before the call returns.
//
// The queue itself is safe for concurrent use, but the pipeline assumes a
// single consumer per queue; concurrent consumers would need per-item
// leasing or a transactional claim, which this interface does not provide.
type TaskQueue interface {
	// Enqueue appends a task to the tail of the named queue.
	// Assigns the task an ID if it has none.
	Enqueue(ctx context.Context, queue core.TaskKind, task *core.Task) error

	// Dequeue removes and returns the oldest task in the named queue.
	// Returns nil, nil when the queue is empty.
	Dequeue(ctx context.Context, queue core.TaskKind) (*core.Task, error)

	// Size returns the number of pending tasks in the named queue.
	Size(ctx context.Context, queue core.TaskKind) (int, error)

	// Clear removes all pending tasks from the named queue.
	Clear(ctx context.Context, queue core.TaskKind) error

	// Close closes the queue and releases resources.
	Close() error
}
