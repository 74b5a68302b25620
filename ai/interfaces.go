package ai

import (
	"context"

	"github.com/totodo/allpassagent/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// RelevanceScorer performs second-pass relevance scoring of retrieved
// documents against a query. Implementations must be thread-safe.
type RelevanceScorer interface {
	// ScoreRelevance scores each document's relevance to the query.
	// Scores are in [0,1]; the result may cover fewer documents than were
	// passed in and is not required to be ordered.
	// Returns an error if the scoring service fails.
	ScoreRelevance(ctx context.Context, query string, documents []string) ([]RelevanceScore, error)
}

// ChatModel generates conversational answers, streaming tokens as they are
// produced. Implementations must be thread-safe.
type ChatModel interface {
	// StreamChat generates an answer to the conversation, calling onToken
	// for every content fragment as it arrives. The full answer is returned
	// once generation completes. onToken may be nil; if it returns an error,
	// generation stops and that error is returned.
	StreamChat(ctx context.Context, system string, turns []core.Turn, onToken func(token string) error) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages the embedding, rerank and chat services,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Reranker returns the relevance scoring service.
	// The returned RelevanceScorer is safe for concurrent use.
	Reranker() RelevanceScorer

	// Chat returns the conversational answer service.
	// The returned ChatModel is safe for concurrent use.
	Chat() ChatModel

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
