package recommend

import (
	"context"
	"fmt"

	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/vectorstore"
)

// candidate is a generated question before scoring.
type candidate struct {
	question   string
	category   core.QuestionCategory
	topic      string
	context    string
	sourceFile string

	// seed is the generator's own grounding signal, typically the
	// similarity of the hit that produced the question. Zero means the
	// generator has none and the scorer substitutes a default.
	seed float32
}

// generatorInput is the shared conversation context handed to every
// generator.
type generatorInput struct {
	topics   []string
	keywords []string
	intent   core.Intent
	sources  []core.RerankResult
}

// generatorFunc produces candidates for one generation strategy.
type generatorFunc func(ctx context.Context, in generatorInput) []candidate

// templateGenerators are the model-free strategies. The engine prepends its
// keyword generator, which re-queries the vector index.
var templateGenerators = []generatorFunc{
	generateTopicQuestions,
	generateIntentQuestions,
	generateSourceQuestions,
}

// keywordQuestions re-queries the vector index for each top message keyword
// and turns strong hits into "tell me more" prompts grounded in the matched
// document. Best-effort: an embed or query failure skips the keyword rather
// than failing generation.
func (e *Engine) keywordQuestions(ctx context.Context, in generatorInput) []candidate {
	out := make([]candidate, 0, len(in.keywords))
	for _, keyword := range in.keywords {
		vector, err := e.embedder.EmbedText(ctx, keyword)
		if err != nil {
			e.logger.Debug("keyword embedding failed", "keyword", keyword, "err", err)
			continue
		}
		hits, err := e.store.Query(ctx, vector, keywordTopK, nil)
		if err != nil {
			e.logger.Debug("keyword search failed", "keyword", keyword, "err", err)
			continue
		}
		for _, hit := range hits {
			if hit.Score < keywordSimilarityFloor {
				continue
			}
			out = append(out, candidate{
				question:   fmt.Sprintf("Can you tell me more about %s?", keyword),
				category:   core.CategoryRelatedTopic,
				topic:      keyword,
				context:    hit.Metadata[vectorstore.MetaSnippet],
				sourceFile: hit.Metadata[vectorstore.MetaFilename],
				seed:       hit.Score,
			})
			break
		}
	}
	return out
}

// generateTopicQuestions asks about each extracted topic: what it is, and
// how it relates to a neighboring keyword from the topic table.
func generateTopicQuestions(_ context.Context, in generatorInput) []candidate {
	out := make([]candidate, 0, 2*len(in.topics))
	for _, topic := range in.topics {
		out = append(out, candidate{
			question: fmt.Sprintf("What is %s and why does it matter here?", topic),
			category: core.CategoryBasicConcept,
			topic:    topic,
		})

		for _, related := range topicKeywords[topic] {
			if related == topic {
				continue
			}
			out = append(out, candidate{
				question: fmt.Sprintf("How does %s relate to %s?", topic, related),
				category: core.CategoryRelatedTopic,
				topic:    topic,
			})
			break
		}
	}
	return out
}

// generateIntentQuestions picks the question angle from the classified
// intent: practice for problem-solving, comparisons and trade-offs for the
// analytical intents.
func generateIntentQuestions(_ context.Context, in generatorInput) []candidate {
	subjects := in.topics
	if len(subjects) == 0 {
		subjects = in.keywords
	}

	out := make([]candidate, 0, len(subjects))
	for _, subject := range subjects {
		var question string
		category := core.CategoryPractice
		switch in.intent {
		case core.IntentComparison:
			question = fmt.Sprintf("How does %s compare to the alternatives?", subject)
			category = core.CategoryDeepDive
		case core.IntentLearning:
			question = fmt.Sprintf("What are the trade-offs and limitations of %s?", subject)
			category = core.CategoryDeepDive
		default:
			question = fmt.Sprintf("How do I apply %s in practice?", subject)
		}
		out = append(out, candidate{
			question: question,
			category: category,
			topic:    subject,
			seed:     0.7,
		})
	}
	return out
}

// generateSourceQuestions turns each cited document into a case-study
// question about applying its leading concept, seeded by the document's
// retrieval score.
func generateSourceQuestions(_ context.Context, in generatorInput) []candidate {
	out := make([]candidate, 0, len(in.sources))
	for _, source := range in.sources {
		filename := source.Match.Filename
		if filename == "" {
			continue
		}
		question := fmt.Sprintf("Can you walk through a concrete example from %s?", filename)
		if concepts := topKeywords(source.Match.Content, 1); len(concepts) > 0 {
			question = fmt.Sprintf("How does %s apply %s in practice?", filename, concepts[0])
		}
		out = append(out, candidate{
			question:   question,
			category:   core.CategoryCaseStudy,
			context:    source.Match.Content,
			sourceFile: filename,
			seed:       source.Score,
		})
	}
	return out
}

// fallbackQuestions are returned when generation produces nothing usable.
func fallbackQuestions() []core.RecommendedQuestion {
	return []core.RecommendedQuestion{
		{
			Id:        "fallback-1",
			Question:  "What are the key concepts covered in the uploaded documents?",
			Category:  core.CategoryBasicConcept,
			Relevance: 0.5,
		},
		{
			Id:        "fallback-2",
			Question:  "Can you summarize the main points of the most relevant document?",
			Category:  core.CategoryDeepDive,
			Relevance: 0.5,
		},
		{
			Id:        "fallback-3",
			Question:  "How can I put this material into practice?",
			Category:  core.CategoryPractice,
			Relevance: 0.5,
		},
	}
}
