package reindex

import "errors"

var (
	ErrDocumentStoreRequired = errors.New("document store is required")
	ErrTaskQueueRequired     = errors.New("task queue is required")
	ErrAIProviderRequired    = errors.New("ai provider is required")
	ErrVectorStoreRequired   = errors.New("vector store is required")

	// ErrVectorMismatch reports an embedding response whose length does not
	// match the submitted batch.
	ErrVectorMismatch = errors.New("embedding count does not match chunk count")

	// ErrNoSource reports a chunkless document that cannot be re-parsed
	// because its raw bytes are gone.
	ErrNoSource = errors.New("document has no source location")
)
