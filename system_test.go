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


package allpassagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/totodo/allpassagent/ai/mock"
	"github.com/totodo/allpassagent/chat"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/ingestion"
)

func openTestSystem(t *testing.T) *System {
	t.Helper()

	sys, err := Open(
		WithInMemory(),
		WithDataDir(t.TempDir()),
		WithAIProvider(mock.NewMockProvider()),
		WithPipelineOptions(
			ingestion.WithRetryDelay(0),
			ingestion.WithEmbedBatchDelay(0),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, sys.Close()) })
	return sys
}

func TestSystemEndToEnd(t *testing.T) {
	sys := openTestSystem(t)
	ctx := context.Background()

	text := "Vector search finds similar chunks. Reranking reorders them by relevance. " +
		"The best matches ground the generated answer."
	doc, err := sys.Pipeline.SubmitDocument(ctx, "rag.txt", core.MediaText, []byte(text))
	require.NoError(t, err)
	require.NoError(t, sys.Pipeline.ProcessPending(ctx))

	got, err := sys.Docs.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, got.Status)

	// The mock embedder is deterministic, so the first chunk's own content
	// retrieves it with similarity 1.0.
	chunks, err := sys.Docs.GetChunks(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	matches, err := sys.Retriever.Retrieve(ctx, core.ConversationContext{Message: chunks[0].Content})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "rag.txt", matches[0].Match.Filename)

	var events []chat.Event
	err = sys.Chat.Respond(ctx, core.ConversationContext{Message: chunks[0].Content}, func(event chat.Event) error {
		events = append(events, event)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.Equal(t, chat.EventFinal, final.Type)
	assert.True(t, final.HasRelevantContext)
	assert.NotEmpty(t, final.Sources)
}

func TestSystemServerAndReindexer(t *testing.T) {
	sys := openTestSystem(t)

	srv, err := sys.Server()
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler())

	reindexer, err := sys.Reindexer()
	require.NoError(t, err)

	report, err := reindexer.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Documents)
}

func TestSystemCloseIsSafeOnPartialOpen(t *testing.T) {
	sys := &System{}
	assert.NoError(t, sys.Close())
}

func TestOpenValidatesOptions(t *testing.T) {
	_, err := Open(WithDataDir(""))
	assert.Error(t, err)

	_, err = Open(WithAIProvider(nil))
	assert.Error(t, err)
}
