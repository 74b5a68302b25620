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


package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/totodo/allpassagent/ai/mock"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/recommend"
	"github.com/totodo/allpassagent/retrieval"
	"github.com/totodo/allpassagent/vectorstore"
	"github.com/totodo/allpassagent/vectorstore/memory"
)

func testRecord(id, filename, content string) vectorstore.Record {
	// Identical to the query embedding, so similarity is 1.0 and the
	// record always clears the retrieval floor.
	return vectorstore.Record{
		ID:     id,
		Values: []float32{1, 0},
		Metadata: map[string]string{
			vectorstore.MetaFilename:   filename,
			vectorstore.MetaDocumentID: "1",
			vectorstore.MetaPage:       "1",
			vectorstore.MetaPageType:   "page",
			vectorstore.MetaContent:    content,
			vectorstore.MetaSnippet:    content,
			vectorstore.MetaModality:   vectorstore.ModalityText,
		},
	}
}

func newTestOrchestrator(t *testing.T, records ...vectorstore.Record) (*Orchestrator, *mock.MockProvider) {
	t.Helper()

	store := memory.NewStore()
	require.NoError(t, store.Upsert(context.Background(), records))
	t.Cleanup(func() { store.Close() })

	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}

	retriever, err := retrieval.NewEngine(store, provider)
	require.NoError(t, err)

	recommender, err := recommend.NewEngine(store, provider)
	require.NoError(t, err)
	t.Cleanup(recommender.Release)

	orch, err := NewOrchestrator(retriever, recommender, provider.Chat())
	require.NoError(t, err)
	return orch, provider
}

func collect(t *testing.T, orch *Orchestrator, convo core.ConversationContext) []Event {
	t.Helper()
	var events []Event
	err := orch.Respond(context.Background(), convo, func(event Event) error {
		events = append(events, event)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestRespondStreamsAndFinalizes(t *testing.T) {
	orch, provider := newTestOrchestrator(t,
		testRecord("1_chunk_0", "chunking.md", "Chunking splits documents into overlapping windows."),
	)
	provider.GetMockChat().Answer = "Chunking splits text into windows."

	events := collect(t, orch, core.ConversationContext{Message: "What is chunking?"})

	require.NotEmpty(t, events)

	finals := 0
	var answer strings.Builder
	for i, event := range events {
		switch event.Type {
		case EventContent:
			answer.WriteString(event.Content)
		case EventFinal:
			finals++
			assert.Equal(t, len(events)-1, i, "final must be the last event")
		}
	}
	assert.Equal(t, 1, finals, "every stream ends with exactly one final event")
	assert.Equal(t, "Chunking splits text into windows.", answer.String(),
		"content events concatenate to the full answer")

	final := events[len(events)-1]
	require.NotEmpty(t, final.Sources)
	assert.Equal(t, "chunking.md", final.Sources[0].Filename)
	assert.NotEmpty(t, final.Sources[0].Snippet)
	assert.True(t, final.HasRelevantContext)
	assert.LessOrEqual(t, len(final.Recommendations), 3)
}

func TestEventsIterator(t *testing.T) {
	orch, provider := newTestOrchestrator(t,
		testRecord("1_chunk_0", "chunking.md", "Chunking splits documents."),
	)
	provider.GetMockChat().Answer = "one two three"

	var events []Event
	for event, err := range orch.Events(context.Background(), core.ConversationContext{Message: "What is chunking?"}) {
		require.NoError(t, err)
		events = append(events, event)
	}
	require.NotEmpty(t, events)
	assert.Equal(t, EventFinal, events[len(events)-1].Type)

	// Breaking early must not leak errors or extra events.
	seen := 0
	for _, err := range orch.Events(context.Background(), core.ConversationContext{Message: "What is chunking?"}) {
		require.NoError(t, err)
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestEventsIteratorYieldsError(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	var errs []error
	for _, err := range orch.Events(context.Background(), core.ConversationContext{Message: ""}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrEmptyMessage)
}

func TestRespondChatFailureApologizes(t *testing.T) {
	orch, provider := newTestOrchestrator(t,
		testRecord("1_chunk_0", "chunking.md", "Chunking splits documents."),
	)
	provider.GetMockChat().StreamChatFunc = func(ctx context.Context, system string, turns []core.Turn, onToken func(string) error) (string, error) {
		if err := onToken("partial "); err != nil {
			return "", err
		}
		return "", errors.New("model unavailable")
	}

	events := collect(t, orch, core.ConversationContext{Message: "What is chunking?"})

	require.GreaterOrEqual(t, len(events), 3)
	final := events[len(events)-1]
	assert.Equal(t, EventFinal, final.Type)
	assert.Empty(t, final.Sources, "a failed answer carries no citations")

	apology := events[len(events)-2]
	assert.Equal(t, EventContent, apology.Type)
	assert.Equal(t, apologyMessage, apology.Content)
}

func TestRespondRetrievalFailureDegrades(t *testing.T) {
	orch, provider := newTestOrchestrator(t)
	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	events := collect(t, orch, core.ConversationContext{Message: "What is chunking?"})

	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.Equal(t, EventFinal, final.Type)
	assert.Empty(t, final.Sources)
	assert.Equal(t, 1, provider.GetMockChat().CallCount(),
		"the answer is still generated without sources")
}

func TestRespondEmptyMessage(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	err := orch.Respond(context.Background(), core.ConversationContext{Message: "   "}, func(Event) error {
		t.Fatal("no events expected for an empty message")
		return nil
	})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestRespondEmitFailureAborts(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	emitErr := errors.New("client disconnected")
	finals := 0
	err := orch.Respond(context.Background(), core.ConversationContext{Message: "hello there"}, func(event Event) error {
		if event.Type == EventFinal {
			finals++
		}
		return emitErr
	})
	assert.ErrorIs(t, err, emitErr)
	assert.Zero(t, finals, "no final event once the client is gone")
}

func TestBuildSystemPrompt(t *testing.T) {
	sources := []core.RerankResult{
		{Match: core.SearchMatch{Filename: "a.pdf", Page: 3, PageType: core.PageTypePage, Content: "excerpt one"}},
		{Match: core.SearchMatch{Filename: "b.txt", Content: "excerpt two"}},
	}

	prompt := buildSystemPrompt(sources)

	assert.Contains(t, prompt, "[1] a.pdf (page 3)")
	assert.Contains(t, prompt, "excerpt one")
	assert.Contains(t, prompt, "[2] b.txt")
	assert.NotContains(t, prompt, "(page 0)", "unpaged sources omit the page marker")
}

func TestBuildSystemPromptNoSources(t *testing.T) {
	assert.Equal(t, noSourcesPrompt, buildSystemPrompt(nil))
}
