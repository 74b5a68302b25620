package mock

import (
	"context"
	"strings"

	"github.com/totodo/allpassagent/ai"
)

// MockRelevanceScorer is a test double for ai.RelevanceScorer.
// It allows custom behavior injection via a function field.
type MockRelevanceScorer struct {
	// ScoreRelevanceFunc is called by ScoreRelevance if set.
	// If nil, uses default deterministic behavior.
	ScoreRelevanceFunc func(ctx context.Context, query string, documents []string) ([]ai.RelevanceScore, error)

	callCount int
}

// NewMockRelevanceScorer creates a mock scorer with default deterministic behavior.
func NewMockRelevanceScorer() *MockRelevanceScorer {
	return &MockRelevanceScorer{}
}

// ScoreRelevance scores documents by term overlap with the query.
// The default behavior is deterministic: the score is the fraction of query
// terms that appear in the document.
func (m *MockRelevanceScorer) ScoreRelevance(ctx context.Context, query string, documents []string) ([]ai.RelevanceScore, error) {
	m.callCount++

	if m.ScoreRelevanceFunc != nil {
		return m.ScoreRelevanceFunc(ctx, query, documents)
	}

	terms := strings.Fields(strings.ToLower(query))
	scores := make([]ai.RelevanceScore, len(documents))
	for i, doc := range documents {
		lower := strings.ToLower(doc)
		hits := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				hits++
			}
		}
		score := float32(0)
		if len(terms) > 0 {
			score = float32(hits) / float32(len(terms))
		}
		scores[i] = ai.RelevanceScore{Index: i, Score: score}
	}
	return scores, nil
}

// CallCount returns the number of times ScoreRelevance was called.
func (m *MockRelevanceScorer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockRelevanceScorer) Reset() {
	m.callCount = 0
	m.ScoreRelevanceFunc = nil
}
