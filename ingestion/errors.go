package ingestion

import "errors"

var (
	// ErrDocumentStoreRequired is returned when a document repository is not provided.
	ErrDocumentStoreRequired = errors.New("document repository required")

	// ErrTaskQueueRequired is returned when a task queue is not provided.
	ErrTaskQueueRequired = errors.New("task queue required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrNoChunks is returned when parsing a document yields no chunks.
	ErrNoChunks = errors.New("document produced no chunks")

	// ErrAllEmbeddingsFailed is returned when no chunk in an embed task
	// could be embedded.
	ErrAllEmbeddingsFailed = errors.New("all embeddings failed")

	// ErrVectorMismatch is returned when an index task carries a different
	// number of vectors than chunks.
	ErrVectorMismatch = errors.New("vector and chunk counts differ")
)
