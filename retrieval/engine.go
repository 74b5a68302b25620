package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/totodo/allpassagent/ai"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/vectorstore"
)

const (
	// primaryTopK is how many hits the general similarity search requests.
	primaryTopK = 15

	// minSimilarity is the floor below which primary hits are discarded.
	minSimilarity = 0.6

	// secondaryTopK is how many hits the multimedia-only search requests.
	secondaryTopK = 8

	// multimediaBoost is applied to secondary hits before fusion, favoring
	// slide and page sources that tend to score lower on raw similarity.
	multimediaBoost = 1.2

	// rerankTopN is how many results survive the second pass.
	rerankTopN = 3

	// enrichTurns is how many trailing history turns enrich the query.
	enrichTurns = 3

	// enrichTurnLen caps each history turn's contribution in bytes.
	enrichTurnLen = 100

	// enrichTotalLen caps the whole history fragment in bytes.
	enrichTotalLen = 500
)

// Engine performs query-time retrieval: enrich the query with conversation
// history, run the primary search, rerank it, then fuse the top results with
// the boosted multimedia leg.
type Engine struct {
	store    vectorstore.Store
	embedder ai.Embedder
	reranker *Reranker
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a new retrieval engine.
func NewEngine(store vectorstore.Store, provider ai.AIProvider, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &Engine{
		store:    store,
		embedder: provider.Embedder(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	e.logger = e.logger.With("component", "retrieval")
	e.reranker = NewReranker(provider.Reranker(), e.logger)
	return e, nil
}

// EnrichQuery folds the trailing conversation history into the query text so
// follow-up questions ("what about the second one?") retrieve against their
// context. The history fragment is bounded so the query cannot grow without
// limit.
func EnrichQuery(convo core.ConversationContext) string {
	message := strings.TrimSpace(convo.Message)

	history := convo.History
	if len(history) > enrichTurns {
		history = history[len(history)-enrichTurns:]
	}

	parts := make([]string, 0, len(history))
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		parts = append(parts, truncateRunes(content, enrichTurnLen))
	}
	if len(parts) == 0 {
		return message
	}

	fragment := truncateRunes(strings.Join(parts, "\n"), enrichTotalLen)
	return fragment + "\n" + message
}

// Retrieve runs the full retrieval pass for a conversation and returns the
// reranked top results, best first.
func (e *Engine) Retrieve(ctx context.Context, convo core.ConversationContext) ([]core.RerankResult, error) {
	return e.RetrieveWithMonitor(ctx, convo, nil)
}

// RetrieveWithMonitor runs the full retrieval pass with monitoring.
// The monitor receives callbacks at each stage.
func (e *Engine) RetrieveWithMonitor(ctx context.Context, convo core.ConversationContext, monitor Monitor) ([]core.RerankResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(convo.Message) == "" {
		return nil, ErrEmptyQuery
	}
	monitor.Start(convo.Message)

	enriched := EnrichQuery(convo)
	monitor.AfterQueryEnrichment(enriched)

	vector, err := e.embedder.EmbedText(ctx, enriched)
	if err != nil {
		e.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	primary, err := e.Search(ctx, vector)
	if err != nil {
		return nil, err
	}
	monitor.AfterPrimarySearch(primary)

	reranked := e.reranker.Rerank(ctx, convo.Message, primary, rerankTopN)

	secondary := e.searchMultimedia(ctx, vector)
	monitor.AfterSecondarySearch(secondary)

	results := fuse(reranked, secondary)
	monitor.AfterFusion(results)

	e.logger.Debug("retrieval complete",
		"primary", len(primary),
		"secondary", len(secondary),
		"results", len(results))
	monitor.Finish(results)
	return results, nil
}

// Search runs the primary similarity search for an already embedded query,
// discarding hits below the quality floor.
func (e *Engine) Search(ctx context.Context, vector []float32) ([]core.SearchMatch, error) {
	hits, err := e.store.Query(ctx, vector, primaryTopK, nil)
	if err != nil {
		e.logger.Error("error querying vector store", "err", err)
		return nil, err
	}

	matches := make([]core.SearchMatch, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < minSimilarity {
			continue
		}
		matches = append(matches, toSearchMatch(hit))
	}
	return matches, nil
}

// searchMultimedia runs the multimedia-only leg. No similarity floor applies
// here: slide and page sources tend to score lower on raw similarity, so the
// leg boosts them instead and lets fusion sort it out. The leg is
// best-effort: a failure degrades results but must not fail the query.
func (e *Engine) searchMultimedia(ctx context.Context, vector []float32) []core.SearchMatch {
	hits, err := e.store.Query(ctx, vector, secondaryTopK,
		vectorstore.Filter{vectorstore.MetaModality: vectorstore.ModalityMultimedia})
	if err != nil {
		e.logger.Warn("multimedia search failed, continuing with primary only", "err", err)
		return nil
	}

	matches := make([]core.SearchMatch, 0, len(hits))
	for _, hit := range hits {
		match := toSearchMatch(hit)
		match.Score = min(match.Score*multimediaBoost, 1.0)
		matches = append(matches, match)
	}
	return matches
}

// fuse merges the reranked primary results with the boosted multimedia
// matches, keeping only the best entry per source file so one document
// cannot crowd out the rest of the context window.
func fuse(reranked []core.RerankResult, multimedia []core.SearchMatch) []core.RerankResult {
	best := make(map[string]core.RerankResult)
	for _, result := range reranked {
		if prev, ok := best[result.Match.Filename]; !ok || result.Score > prev.Score {
			best[result.Match.Filename] = result
		}
	}
	for _, match := range multimedia {
		result := core.RerankResult{
			Match:         match,
			OriginalScore: match.Score,
			Score:         match.Score,
		}
		if prev, ok := best[match.Filename]; !ok || result.Score > prev.Score {
			best[match.Filename] = result
		}
	}

	fused := make([]core.RerankResult, 0, len(best))
	for _, result := range best {
		fused = append(fused, result)
	}
	sort.Slice(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	return fused
}

func toSearchMatch(hit vectorstore.Match) core.SearchMatch {
	page, _ := strconv.Atoi(hit.Metadata[vectorstore.MetaPage])
	content := hit.Metadata[vectorstore.MetaContent]
	if content == "" {
		content = hit.Metadata[vectorstore.MetaSnippet]
	}
	return core.SearchMatch{
		Content:    content,
		Filename:   hit.Metadata[vectorstore.MetaFilename],
		DocumentID: hit.Metadata[vectorstore.MetaDocumentID],
		Page:       page,
		PageType:   core.PageType(hit.Metadata[vectorstore.MetaPageType]),
		Score:      hit.Score,
	}
}
