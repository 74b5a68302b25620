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


package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/storage"
)

func newTestStores(t *testing.T) (storage.DocumentRepository, storage.TaskQueue) {
	t.Helper()
	docs, queue, backend, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() {
		queue.Close()
		docs.Close()
		backend.Close()
	})
	return docs, queue
}

func TestPutGetDocument(t *testing.T) {
	docs, _ := newTestStores(t)
	ctx := context.Background()

	doc := &core.Document{
		Id:             core.IDFromContent("notes.txt"),
		Filename:       "notes.txt",
		SourceLocation: "/uploads/notes.txt",
		MediaKind:      core.MediaText,
		Status:         core.StatusPending,
	}

	require.NoError(t, docs.PutDocument(ctx, doc))
	assert.False(t, doc.UploadedAt.IsZero(), "PutDocument should set UploadedAt")

	got, err := docs.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, doc.Filename, got.Filename)
	assert.Equal(t, core.StatusPending, got.Status)
}

func TestGetDocument_NotFound(t *testing.T) {
	docs, _ := newTestStores(t)

	_, err := docs.GetDocument(context.Background(), 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPutDocument_Overwrites(t *testing.T) {
	docs, _ := newTestStores(t)
	ctx := context.Background()

	doc := &core.Document{Id: 1, Filename: "a.txt", MediaKind: core.MediaText, Status: core.StatusPending}
	require.NoError(t, docs.PutDocument(ctx, doc))

	doc.ChunkCount = 9
	doc.Status = core.StatusProcessing
	require.NoError(t, docs.PutDocument(ctx, doc))

	got, err := docs.GetDocument(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, got.ChunkCount)
	assert.Equal(t, core.StatusProcessing, got.Status)

	all, err := docs.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSetStatus(t *testing.T) {
	docs, _ := newTestStores(t)
	ctx := context.Background()

	doc := &core.Document{Id: 1, Filename: "a.txt", MediaKind: core.MediaText, Status: core.StatusPending}
	require.NoError(t, docs.PutDocument(ctx, doc))

	t.Run("failed keeps error message", func(t *testing.T) {
		require.NoError(t, docs.SetStatus(ctx, 1, core.StatusFailed, "empty extracted text"))
		got, err := docs.GetDocument(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, core.StatusFailed, got.Status)
		assert.Equal(t, "empty extracted text", got.Error)
	})

	t.Run("recovery clears error message", func(t *testing.T) {
		require.NoError(t, docs.SetStatus(ctx, 1, core.StatusProcessing, ""))
		got, err := docs.GetDocument(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, got.Error)
	})

	t.Run("completed sets processed timestamp", func(t *testing.T) {
		require.NoError(t, docs.SetStatus(ctx, 1, core.StatusCompleted, ""))
		got, err := docs.GetDocument(ctx, 1)
		require.NoError(t, err)
		assert.False(t, got.ProcessedAt.IsZero())
	})

	t.Run("unknown document", func(t *testing.T) {
		err := docs.SetStatus(ctx, 999, core.StatusCompleted, "")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestPutChunks_ReplacesAndOrders(t *testing.T) {
	docs, _ := newTestStores(t)
	ctx := context.Background()

	first := []core.Chunk{
		{Index: 0, Content: "chunk zero", EndChar: 10},
		{Index: 1, Content: "chunk one", StartChar: 8, EndChar: 17},
		{Index: 2, Content: "chunk two", StartChar: 15, EndChar: 24},
	}
	require.NoError(t, docs.PutChunks(ctx, 7, first))

	// Re-ingestion produced fewer chunks; stale trailing chunks must go away.
	second := []core.Chunk{
		{Index: 0, Content: "rewritten zero", EndChar: 14},
		{Index: 1, Content: "rewritten one", StartChar: 12, EndChar: 25},
	}
	require.NoError(t, docs.PutChunks(ctx, 7, second))

	got, err := docs.GetChunks(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i, chunk := range got {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, core.ID(7), chunk.DocumentID)
	}
	assert.Equal(t, "rewritten zero", got[0].Content)
}

func TestGetChunks_IsolatedPerDocument(t *testing.T) {
	docs, _ := newTestStores(t)
	ctx := context.Background()

	require.NoError(t, docs.PutChunks(ctx, 1, []core.Chunk{{Index: 0, Content: "doc one", EndChar: 7}}))
	require.NoError(t, docs.PutChunks(ctx, 2, []core.Chunk{{Index: 0, Content: "doc two", EndChar: 7}}))

	got, err := docs.GetChunks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "doc one", got[0].Content)
}

func TestDeleteDocument(t *testing.T) {
	docs, _ := newTestStores(t)
	ctx := context.Background()

	doc := &core.Document{Id: 3, Filename: "bye.txt", MediaKind: core.MediaText, Status: core.StatusCompleted}
	require.NoError(t, docs.PutDocument(ctx, doc))
	require.NoError(t, docs.PutChunks(ctx, 3, []core.Chunk{{Index: 0, Content: "gone soon", EndChar: 9}}))

	require.NoError(t, docs.DeleteDocument(ctx, 3))

	_, err := docs.GetDocument(ctx, 3)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	chunks, err := docs.GetChunks(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	assert.ErrorIs(t, docs.DeleteDocument(ctx, 3), storage.ErrNotFound)
}
