package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/totodo/allpassagent/ai"
	"github.com/totodo/allpassagent/core"
)

const (
	// Weights fusing the original similarity with the second-pass relevance.
	originalWeight  = 0.3
	relevanceWeight = 0.7

	// Weights of the heuristic fallback used when the rerank service is
	// unavailable.
	fallbackOriginalWeight = 0.5
	fallbackKeywordWeight  = 0.3
	fallbackLengthWeight   = 0.2

	// fallbackLengthNorm is the content length at which the length factor
	// saturates.
	fallbackLengthNorm = 1000
)

// Reranker applies second-pass relevance scoring to search matches.
//
// Reranking refines ordering but must never lose results: if the scoring
// service fails, a lexical heuristic takes over, and if scoring panics the
// original ordering is returned. Rerank therefore returns no error.
type Reranker struct {
	scorer ai.RelevanceScorer
	logger *slog.Logger
}

// NewReranker creates a reranker on top of the given scorer.
func NewReranker(scorer ai.RelevanceScorer, logger *slog.Logger) *Reranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reranker{
		scorer: scorer,
		logger: logger.With("component", "reranker"),
	}
}

// Rerank scores matches against the query and returns the top results,
// best first. Each result's Score fuses the original similarity with the
// second-pass relevance.
func (r *Reranker) Rerank(ctx context.Context, query string, matches []core.SearchMatch, topN int) (results []core.RerankResult) {
	if len(matches) == 0 {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("rerank panicked, keeping original order", "panic", rec)
			results = originalOrder(matches, topN)
		}
	}()

	documents := make([]string, len(matches))
	for i, match := range matches {
		documents[i] = match.Content
	}

	scores, err := r.scorer.ScoreRelevance(ctx, query, documents)
	if err != nil {
		r.logger.Warn("rerank service failed, using heuristic scoring", "err", err)
		return r.heuristic(query, matches, topN)
	}

	relevance := make(map[int]float32, len(scores))
	for _, score := range scores {
		relevance[score.Index] = score.Score
	}

	results = make([]core.RerankResult, 0, len(matches))
	for i, match := range matches {
		rel, scored := relevance[i]
		if !scored {
			// The service dropped this document; score it locally so it
			// still competes.
			results = append(results, r.heuristicResult(query, match))
			continue
		}
		results = append(results, core.RerankResult{
			Match:         match,
			OriginalScore: match.Score,
			RerankScore:   rel,
			Score:         originalWeight*match.Score + relevanceWeight*rel,
		})
	}

	return sortAndTrim(results, topN)
}

// heuristic scores every match lexically, for when the rerank service is
// down entirely.
func (r *Reranker) heuristic(query string, matches []core.SearchMatch, topN int) []core.RerankResult {
	results := make([]core.RerankResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, r.heuristicResult(query, match))
	}
	return sortAndTrim(results, topN)
}

func (r *Reranker) heuristicResult(query string, match core.SearchMatch) core.RerankResult {
	density := keywordDensity(match.Content, query)
	length := min(float32(len(match.Content))/fallbackLengthNorm, 1.0)
	score := fallbackOriginalWeight*match.Score +
		fallbackKeywordWeight*density +
		fallbackLengthWeight*length
	return core.RerankResult{
		Match:         match,
		OriginalScore: match.Score,
		RerankScore:   density,
		Score:         score,
	}
}

func originalOrder(matches []core.SearchMatch, topN int) []core.RerankResult {
	results := make([]core.RerankResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, core.RerankResult{
			Match:         match,
			OriginalScore: match.Score,
			Score:         match.Score,
		})
	}
	return sortAndTrim(results, topN)
}

func sortAndTrim(results []core.RerankResult, topN int) []core.RerankResult {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}
