package recommend

import "errors"

var (
	// ErrVectorStoreRequired is returned when no vector store is provided.
	ErrVectorStoreRequired = errors.New("vector store is required")

	// ErrAIProviderRequired is returned when no AI provider is provided.
	ErrAIProviderRequired = errors.New("AI provider is required")
)
