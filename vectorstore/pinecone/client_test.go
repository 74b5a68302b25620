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


package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/totodo/allpassagent/vectorstore"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewStore(Config{Host: server.URL, APIKey: "test-key", Namespace: "docs"})
	require.NoError(t, err)
	return store
}

func TestUpsert(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vectors/upsert", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))

		var req upsertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Vectors, 1)
		assert.Equal(t, "42_chunk_0", req.Vectors[0].ID)
		assert.Equal(t, "docs", req.Namespace)
		assert.Equal(t, "notes.txt", req.Vectors[0].Metadata["filename"])

		w.Write([]byte(`{"upsertedCount":1}`))
	})

	err := store.Upsert(context.Background(), []vectorstore.Record{{
		ID:       "42_chunk_0",
		Values:   []float32{0.1, 0.2},
		Metadata: map[string]string{"filename": "notes.txt"},
	}})
	require.NoError(t, err)
}

func TestQuery(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)

		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 15, req.TopK)
		assert.True(t, req.IncludeMetadata)
		require.NotNil(t, req.Filter)
		assert.Equal(t, map[string]any{"$eq": "slide"}, req.Filter["modality"])

		json.NewEncoder(w).Encode(queryResponse{Matches: []queryMatch{
			{ID: "1_chunk_0", Score: 0.93, Metadata: map[string]string{"filename": "deck.pptx"}},
		}})
	})

	matches, err := store.Query(context.Background(), []float32{0.5, 0.5}, 15,
		vectorstore.Filter{"modality": "slide"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "1_chunk_0", matches[0].ID)
	assert.InDelta(t, 0.93, matches[0].Score, 1e-6)
}

func TestQuery_EmptyVector(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty vector")
	})

	_, err := store.Query(context.Background(), nil, 10, nil)
	assert.ErrorIs(t, err, vectorstore.ErrEmptyVector)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vectors/delete", r.URL.Path)

		var req deleteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"1_chunk_0", "1_chunk_1"}, req.IDs)

		w.Write([]byte(`{}`))
	})

	require.NoError(t, store.Delete(context.Background(), []string{"1_chunk_0", "1_chunk_1"}))
}

func TestServerError(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	err := store.Upsert(context.Background(), []vectorstore.Record{{ID: "a", Values: []float32{1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
