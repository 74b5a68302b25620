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


// Package memory provides a process-local vector store with exact
// cosine-similarity search. It backs tests and small single-node
// deployments where an external index is not worth running.
package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/totodo/allpassagent/vectorstore"
)

// Store is an in-memory vectorstore.Store.
type Store struct {
	mu      sync.RWMutex
	records map[string]vectorstore.Record
	dim     int
	closed  bool
}

var _ vectorstore.Store = (*Store)(nil)

// NewStore creates an empty in-memory vector store. The index dimension is
// fixed by the first upserted record.
func NewStore() *Store {
	return &Store{records: make(map[string]vectorstore.Record)}
}

// Upsert writes records, overwriting any with the same ID.
func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return vectorstore.ErrStoreClosed
	}

	for _, record := range records {
		if len(record.Values) == 0 {
			return fmt.Errorf("%w: record %q", vectorstore.ErrEmptyVector, record.ID)
		}
		if s.dim == 0 {
			s.dim = len(record.Values)
		}
		if len(record.Values) != s.dim {
			return fmt.Errorf("%w: record %q has %d, index has %d",
				vectorstore.ErrDimensionMismatch, record.ID, len(record.Values), s.dim)
		}
		s.records[record.ID] = record
	}
	return nil
}

// Query returns up to topK records most similar to the vector.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter vectorstore.Filter) ([]vectorstore.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, vectorstore.ErrStoreClosed
	}
	if len(vector) == 0 {
		return nil, vectorstore.ErrEmptyVector
	}
	if s.dim != 0 && len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d",
			vectorstore.ErrDimensionMismatch, len(vector), s.dim)
	}

	matches := make([]vectorstore.Match, 0, len(s.records))
	for _, record := range s.records {
		if !matchesFilter(record.Metadata, filter) {
			continue
		}
		matches = append(matches, vectorstore.Match{
			ID:       record.ID,
			Score:    cosineSimilarity(vector, record.Values),
			Metadata: record.Metadata,
		})
	}

	slices.SortFunc(matches, func(a, b vectorstore.Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete removes records by ID.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return vectorstore.ErrStoreClosed
	}

	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// Close marks the store closed. Further operations fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matchesFilter(metadata map[string]string, filter vectorstore.Filter) bool {
	for key, want := range filter {
		if metadata[key] != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
