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


package reindex

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/totodo/allpassagent/ai/mock"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/storage"
	storagebadger "github.com/totodo/allpassagent/storage/badger"
	"github.com/totodo/allpassagent/vectorstore/memory"
)

type testEnv struct {
	reindexer *Reindexer
	docs      storage.DocumentRepository
	queue     storage.TaskQueue
	store     *memory.Store
	provider  *mock.MockProvider
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	docs, queue, backend, err := storagebadger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		queue.Close()
		docs.Close()
		backend.Close()
	})

	provider := mock.NewMockProvider().(*mock.MockProvider)
	store := memory.NewStore()
	t.Cleanup(func() { store.Close() })

	base := []Option{WithRetryDelay(0)}
	reindexer, err := NewReindexer(docs, queue, provider, store, append(base, opts...)...)
	require.NoError(t, err)

	return &testEnv{reindexer: reindexer, docs: docs, queue: queue, store: store, provider: provider}
}

func seedDocument(t *testing.T, env *testEnv, id core.ID, filename, location string, chunkCount int) *core.Document {
	t.Helper()
	ctx := context.Background()

	doc := &core.Document{
		Id:             id,
		Filename:       filename,
		SourceLocation: location,
		MediaKind:      core.MediaText,
		Status:         core.StatusCompleted,
	}
	require.NoError(t, env.docs.PutDocument(ctx, doc))

	chunks := make([]core.Chunk, chunkCount)
	for i := range chunks {
		content := fmt.Sprintf("chunk %d of %s", i, filename)
		chunks[i] = core.Chunk{
			DocumentID: id,
			Index:      i,
			Content:    content,
			StartChar:  i * 100,
			EndChar:    i*100 + len(content),
		}
	}
	if chunkCount > 0 {
		require.NoError(t, env.docs.PutChunks(ctx, id, chunks))
	}
	doc.ChunkCount = chunkCount
	require.NoError(t, env.docs.PutDocument(ctx, doc))
	return doc
}

func TestRunRebuildsIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedDocument(t, env, 1, "a.txt", "/tmp/a.txt", 3)
	seedDocument(t, env, 2, "b.txt", "/tmp/b.txt", 2)

	report, err := env.reindexer.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, 2, report.Reindexed)
	assert.Zero(t, report.Requeued)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 5, env.store.Len())

	doc, err := env.docs.GetDocument(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, doc.Status)
	assert.Equal(t, 3, doc.VectorCount)
}

func TestRunIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedDocument(t, env, 1, "a.txt", "/tmp/a.txt", 3)

	_, err := env.reindexer.Run(ctx)
	require.NoError(t, err)
	_, err = env.reindexer.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, env.store.Len(), "vector IDs are deterministic, so reruns overwrite")
}

func TestRunRequeuesChunklessDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedDocument(t, env, 1, "lost.txt", "/tmp/lost.txt", 0)

	report, err := env.reindexer.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Requeued)
	assert.Zero(t, report.Failed)

	size, err := env.queue.Size(ctx, core.TaskParse)
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	task, err := env.queue.Dequeue(ctx, core.TaskParse)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, core.ID(1), task.DocumentID)
	assert.Equal(t, "/tmp/lost.txt", task.SourceLocation)

	doc, err := env.docs.GetDocument(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, doc.Status)
}

func TestRunFailsDocumentWithoutSource(t *testing.T) {
	env := newTestEnv(t)
	seedDocument(t, env, 1, "gone.txt", "", 0)

	report, err := env.reindexer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Requeued)
}

func TestRunRetriesTransientEmbedFailures(t *testing.T) {
	env := newTestEnv(t)
	seedDocument(t, env, 1, "a.txt", "/tmp/a.txt", 2)

	attempts := 0
	env.provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("embedding service hiccup")
		}
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{1, 0}
		}
		return vectors, nil
	}

	report, err := env.reindexer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Reindexed)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, env.store.Len())
}

func TestRunReportsPersistentFailure(t *testing.T) {
	env := newTestEnv(t)
	seedDocument(t, env, 1, "a.txt", "/tmp/a.txt", 2)

	env.provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	report, err := env.reindexer.Run(context.Background())
	require.NoError(t, err, "per-document failures do not abort the run")

	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, env.store.Len())
}

func TestRunHonorsBatchSize(t *testing.T) {
	env := newTestEnv(t, WithBatchSize(2))
	seedDocument(t, env, 1, "a.txt", "/tmp/a.txt", 5)

	var batchSizes []int
	env.provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		batchSizes = append(batchSizes, len(texts))
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{1, 0}
		}
		return vectors, nil
	}

	_, err := env.reindexer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("first try succeeds", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, 3, 0, func() error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		calls := 0
		wantErr := errors.New("always fails")
		err := RetryWithBackoff(ctx, 3, 0, func() error {
			calls++
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		err := RetryWithBackoff(cancelled, 3, time.Minute, func() error {
			calls++
			return errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("rejects zero attempts", func(t *testing.T) {
		assert.Error(t, RetryWithBackoff(ctx, 0, 0, func() error { return nil }))
	})
}
