package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/totodo/allpassagent/ai"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/vectorstore"
)

const (
	// relevanceThreshold drops candidates that score below it.
	relevanceThreshold = 0.6

	// maxQuestions bounds the returned recommendations.
	maxQuestions = 3

	// maxMessageKeywords is how many message keywords feed the keyword
	// generator and overlap scoring.
	maxMessageKeywords = 3

	// keywordTopK is how many index hits each keyword query requests.
	keywordTopK = 3

	// keywordSimilarityFloor is the similarity a keyword hit needs before
	// it becomes a question.
	keywordSimilarityFloor = 0.6
)

// A candidate's relevance combines the generator's seed strength with the
// overlap between the question and the message keywords, plus a per-category
// weight.
const (
	scoreBase     = 0.4
	seedWeight    = 0.3
	overlapWeight = 0.15

	// defaultSeed stands in for candidates whose generator has no
	// similarity signal of its own.
	defaultSeed = 0.65
)

// categoryWeights favor grounded, actionable questions over generic ones.
// Table-driven so deployments can be tuned without touching the scorer.
var categoryWeights = map[core.QuestionCategory]float32{
	core.CategoryCaseStudy:    0.20,
	core.CategoryPractice:     0.15,
	core.CategoryDeepDive:     0.12,
	core.CategoryBasicConcept: 0.10,
	core.CategoryRelatedTopic: 0.08,
}

// Engine generates follow-up question recommendations from the conversation
// and the sources retrieval found for it. Recommendation is advisory: it
// degrades to generic questions rather than failing.
type Engine struct {
	store      vectorstore.Store
	embedder   ai.Embedder
	pool       *ants.Pool
	generators []generatorFunc
	logger     *slog.Logger
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

// NewEngine creates a recommendation engine with its own worker pool. The
// vector store and embedder back the keyword generator, which re-queries the
// index for the message's top keywords.
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
	e.logger = e.logger.With("component", "recommend")
	e.generators = append([]generatorFunc{e.keywordQuestions}, templateGenerators...)

	pool, err := ants.NewPool(len(e.generators))
	if err != nil {
		return nil, err
	}
	e.pool = pool
	return e, nil
}

// Release releases the worker pool.
// The engine should not be used after calling Release.
func (e *Engine) Release() {
	e.pool.Release()
}

// Recommend produces up to three follow-up questions for the conversation.
// It never fails: any panic in generation is recovered and generic
// questions are returned instead.
func (e *Engine) Recommend(ctx context.Context, convo core.ConversationContext, sources []core.RerankResult) (recs []core.RecommendedQuestion) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("recommendation generation panicked, using fallback", "panic", rec)
			recs = fallbackQuestions()
		}
	}()

	topics := convo.Topics
	if len(topics) == 0 {
		topics = ExtractTopics(convo)
	}
	intent := convo.Intent
	if intent == "" {
		intent = ClassifyIntent(convo.Message)
	}
	keywords := topKeywords(convo.Message, maxMessageKeywords)

	candidates := e.generate(ctx, generatorInput{
		topics:   topics,
		keywords: keywords,
		intent:   intent,
		sources:  sources,
	})
	recs = e.selectTop(candidates, keywords)
	if len(recs) == 0 {
		e.logger.Debug("no candidate cleared the relevance threshold, using fallback")
		recs = fallbackQuestions()
	}
	return recs
}

// generate runs all generators concurrently on the pool and collects their
// candidates.
func (e *Engine) generate(ctx context.Context, in generatorInput) []candidate {
	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		candidates []candidate
		panicked   any
	)

	for _, gen := range e.generators {
		gen := gen
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					mu.Lock()
					panicked = rec
					mu.Unlock()
				}
			}()
			out := gen(ctx, in)
			mu.Lock()
			candidates = append(candidates, out...)
			mu.Unlock()
		}
		if err := e.pool.Submit(task); err != nil {
			// Pool exhausted or released; run inline rather than drop.
			task()
		}
	}
	wg.Wait()

	if panicked != nil {
		panic(panicked)
	}
	return candidates
}

// selectTop scores, filters, dedupes and trims the candidate set.
func (e *Engine) selectTop(candidates []candidate, keywords []string) []core.RecommendedQuestion {
	seen := make(map[string]bool, len(candidates))
	scored := make([]core.RecommendedQuestion, 0, len(candidates))

	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.question))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		relevance := scoreCandidate(c, keywords)
		if relevance < relevanceThreshold {
			continue
		}

		scored = append(scored, core.RecommendedQuestion{
			Id:         fmt.Sprintf("q-%x", uint64(core.IDFromContent(key))),
			Question:   c.question,
			Category:   c.category,
			Relevance:  relevance,
			Context:    c.context,
			SourceFile: c.sourceFile,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})

	// Diversity: each category gets one slot before any category repeats,
	// so three strong candidates of one kind cannot fill the whole set.
	picked := make([]core.RecommendedQuestion, 0, maxQuestions)
	repeats := make([]core.RecommendedQuestion, 0)
	pickedCategory := make(map[core.QuestionCategory]bool)
	for _, q := range scored {
		if pickedCategory[q.Category] {
			repeats = append(repeats, q)
			continue
		}
		pickedCategory[q.Category] = true
		picked = append(picked, q)
	}
	picked = append(picked, repeats...)
	if len(picked) > maxQuestions {
		picked = picked[:maxQuestions]
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Relevance > picked[j].Relevance
	})
	return picked
}

// scoreCandidate rates how well a candidate fits the conversation.
func scoreCandidate(c candidate, keywords []string) float32 {
	seed := c.seed
	if seed <= 0 {
		seed = defaultSeed
	}
	score := scoreBase +
		seedWeight*seed +
		overlapWeight*keywordOverlap(keywords, c.question) +
		categoryWeights[c.category]
	return min(score, 1.0)
}

// keywordOverlap returns the fraction of message keywords the question
// mentions.
func keywordOverlap(keywords []string, question string) float32 {
	if len(keywords) == 0 {
		return 0
	}
	tokens := make(map[string]bool)
	for _, word := range tokenizeAndFilter(question) {
		tokens[word] = true
	}
	hits := 0
	for _, keyword := range keywords {
		if tokens[keyword] {
			hits++
		}
	}
	return float32(hits) / float32(len(keywords))
}
