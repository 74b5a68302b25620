// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/totodo/allpassagent/ai/mock"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/vectorstore"
	"github.com/totodo/allpassagent/vectorstore/memory"
)

func indexRecord(id, filename, content string) vectorstore.Record {
	return vectorstore.Record{
		ID:     id,
		Values: []float32{1, 0},
		Metadata: map[string]string{
			vectorstore.MetaFilename: filename,
			vectorstore.MetaSnippet:  content,
			vectorstore.MetaModality: "text",
		},
	}
}

func newTestEngine(t *testing.T, records ...vectorstore.Record) (*Engine, *mock.MockProvider) {
	t.Helper()

	store := memory.NewStore()
	require.NoError(t, store.Upsert(context.Background(), records))
	t.Cleanup(func() { store.Close() })

	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}

	engine, err := NewEngine(store, provider)
	require.NoError(t, err)
	t.Cleanup(engine.Release)
	return engine, provider
}

func sourceResult(filename, content string, score float32) core.RerankResult {
	return core.RerankResult{
		Match: core.SearchMatch{Filename: filename, Content: content, Score: score},
		Score: score,
	}
}

func TestRecommend(t *testing.T) {
	engine, _ := newTestEngine(t)

	convo := core.ConversationContext{
		Message: "I need to fix a problem with our deployment pipeline",
	}
	sources := []core.RerankResult{
		sourceResult("runbook.md", "Deployment runbook for the staging cluster.", 0.85),
	}

	recs := engine.Recommend(context.Background(), convo, sources)

	require.NotEmpty(t, recs)
	assert.LessOrEqual(t, len(recs), 3)
	for _, rec := range recs {
		assert.NotEmpty(t, rec.Id)
		assert.NotEmpty(t, rec.Question)
		assert.GreaterOrEqual(t, rec.Relevance, float32(0.6))
		assert.LessOrEqual(t, rec.Relevance, float32(1.0))
	}
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Relevance, recs[i].Relevance)
	}
}

func TestRecommendGroundedQuestionRanksHigh(t *testing.T) {
	engine, _ := newTestEngine(t)

	convo := core.ConversationContext{Message: "my deployment keeps failing with an error"}
	sources := []core.RerankResult{
		sourceResult("deploy-guide.pdf", "Step by step deployment guide.", 0.9),
	}

	recs := engine.Recommend(context.Background(), convo, sources)

	require.NotEmpty(t, recs)
	assert.Equal(t, core.CategoryCaseStudy, recs[0].Category,
		"a strongly scored source grounds the best question")
	assert.Equal(t, "deploy-guide.pdf", recs[0].SourceFile)
}

func TestRecommendKeepsCategoriesDiverse(t *testing.T) {
	engine, _ := newTestEngine(t)

	convo := core.ConversationContext{
		Message: "my deployment keeps failing and the testing pipeline is broken",
	}

	recs := engine.Recommend(context.Background(), convo, nil)

	require.Len(t, recs, 3)
	categories := make(map[core.QuestionCategory]bool)
	for _, rec := range recs {
		categories[rec.Category] = true
	}
	assert.GreaterOrEqual(t, len(categories), 2,
		"one strong category must not fill every slot")
}

func TestRecommendQueriesIndexPerKeyword(t *testing.T) {
	engine, _ := newTestEngine(t,
		indexRecord("v1", "vectors.md", "Vector indexes trade recall for speed."),
	)

	convo := core.ConversationContext{Message: "kubernetes kubernetes kubernetes"}
	recs := engine.Recommend(context.Background(), convo, nil)

	require.NotEmpty(t, recs)
	top := recs[0]
	assert.Equal(t, core.CategoryRelatedTopic, top.Category,
		"a strong index hit for the top keyword leads the set")
	assert.Contains(t, top.Question, "kubernetes")
	assert.Equal(t, "vectors.md", top.SourceFile)
	assert.NotEmpty(t, top.Context)
}

func TestRecommendSurvivesIndexFailure(t *testing.T) {
	engine, provider := newTestEngine(t)
	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	convo := core.ConversationContext{Message: "how do I tune deployment performance"}
	recs := engine.Recommend(context.Background(), convo, nil)

	require.NotEmpty(t, recs, "template generators still deliver when the index is unreachable")
}

func TestRecommendDedupes(t *testing.T) {
	engine, _ := newTestEngine(t)

	convo := core.ConversationContext{Message: "explain testing"}
	// The same file appearing twice must not yield duplicate questions.
	sources := []core.RerankResult{
		sourceResult("guide.md", "chunk one", 0.9),
		sourceResult("guide.md", "chunk two", 0.8),
	}

	recs := engine.Recommend(context.Background(), convo, sources)
	questions := make(map[string]bool)
	for _, rec := range recs {
		assert.False(t, questions[rec.Question], "duplicate question %q", rec.Question)
		questions[rec.Question] = true
	}
}

func TestRecommendFallbackOnEmptyConversation(t *testing.T) {
	engine, _ := newTestEngine(t)

	recs := engine.Recommend(context.Background(), core.ConversationContext{Message: ""}, nil)

	require.Len(t, recs, 3, "an empty conversation still gets generic suggestions")
	assert.Equal(t, "fallback-1", recs[0].Id)
}

func TestRecommendRecoversFromPanic(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.generators = append(engine.generators, func(context.Context, generatorInput) []candidate {
		panic("generator bug")
	})

	recs := engine.Recommend(context.Background(), core.ConversationContext{Message: "explain testing"}, nil)

	require.Len(t, recs, 3, "a panicking generator degrades to fallback questions")
	assert.Equal(t, "fallback-1", recs[0].Id)
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		message string
		want    core.Intent
	}{
		{"my build is broken and fails", core.IntentProblemSolving},
		{"postgres vs sqlite for this workload", core.IntentComparison},
		{"what is a vector index", core.IntentLearning},
		{"tell me more", core.IntentGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIntent(tt.message))
		})
	}
}

func TestExtractTopics(t *testing.T) {
	convo := core.ConversationContext{
		Message: "our deployment performance is slow",
		History: []core.Turn{
			{Role: core.RoleUser, Content: "we changed the database schema"},
		},
	}

	topics := ExtractTopics(convo)

	assert.Contains(t, topics, "deployment")
	assert.Contains(t, topics, "performance")
	assert.Contains(t, topics, "data")
	assert.LessOrEqual(t, len(topics), maxTopics)
}

func TestExtractTopicsFreeKeywords(t *testing.T) {
	convo := core.ConversationContext{Message: "kubernetes kubernetes ingress"}

	topics := ExtractTopics(convo)

	require.NotEmpty(t, topics)
	assert.Equal(t, "kubernetes", topics[0], "most frequent free keyword leads when no table topic matches")
}
