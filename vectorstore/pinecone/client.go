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


// Package pinecone implements vectorstore.Store against a
// Pinecone-compatible index over its HTTP API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/totodo/allpassagent/vectorstore"
)

// Config holds the connection settings for a Pinecone-compatible index.
type Config struct {
	// Host is the index endpoint, e.g. "https://my-index-abc123.svc.pinecone.io".
	Host string

	// APIKey is sent in the Api-Key header. May be empty for local
	// compatible servers.
	APIKey string

	// Namespace scopes all operations; empty uses the default namespace.
	Namespace string
}

// Store is a vectorstore.Store backed by a Pinecone-compatible HTTP index.
type Store struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

var _ vectorstore.Store = (*Store)(nil)

// NewStore creates a store for the configured index.
func NewStore(config Config) (*Store, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("pinecone: Host is required")
	}
	config.Host = strings.TrimSuffix(config.Host, "/")

	return &Store{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default().With("component", "pinecone"),
	}, nil
}

type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Namespace       string         `json:"namespace,omitempty"`
	Filter          map[string]any `json:"filter,omitempty"`
}

type queryMatch struct {
	ID       string            `json:"id"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

type queryResponse struct {
	Matches []queryMatch `json:"matches"`
}

type deleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace,omitempty"`
}

// Upsert writes records, overwriting any with the same ID.
func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}

	vectors := make([]vector, 0, len(records))
	for _, record := range records {
		if len(record.Values) == 0 {
			return fmt.Errorf("%w: record %q", vectorstore.ErrEmptyVector, record.ID)
		}
		vectors = append(vectors, vector{
			ID:       record.ID,
			Values:   record.Values,
			Metadata: record.Metadata,
		})
	}

	s.logger.Debug("upserting vectors", "count", len(vectors))
	return s.post(ctx, "/vectors/upsert", upsertRequest{
		Vectors:   vectors,
		Namespace: s.config.Namespace,
	}, nil)
}

// Query returns up to topK records most similar to the vector.
func (s *Store) Query(ctx context.Context, queryVector []float32, topK int, filter vectorstore.Filter) ([]vectorstore.Match, error) {
	if len(queryVector) == 0 {
		return nil, vectorstore.ErrEmptyVector
	}

	req := queryRequest{
		Vector:          queryVector,
		TopK:            topK,
		IncludeMetadata: true,
		Namespace:       s.config.Namespace,
	}
	if len(filter) > 0 {
		clause := make(map[string]any, len(filter))
		for key, value := range filter {
			clause[key] = map[string]any{"$eq": value}
		}
		req.Filter = clause
	}

	var parsed queryResponse
	if err := s.post(ctx, "/query", req, &parsed); err != nil {
		return nil, err
	}

	matches := make([]vectorstore.Match, 0, len(parsed.Matches))
	for _, match := range parsed.Matches {
		matches = append(matches, vectorstore.Match{
			ID:       match.ID,
			Score:    match.Score,
			Metadata: match.Metadata,
		})
	}
	return matches, nil
}

// Delete removes records by ID.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.post(ctx, "/vectors/delete", deleteRequest{
		IDs:       ids,
		Namespace: s.config.Namespace,
	}, nil)
}

// Close is a no-op; the store holds no connections between requests.
func (s *Store) Close() error {
	return nil
}

// post sends a JSON request and decodes the JSON response into out when out
// is non-nil.
func (s *Store) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Host+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Api-Key", s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("index request failed", "path", path, "err", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Error("index returned error", "path", path, "status", resp.StatusCode, "body", string(snippet))
		return fmt.Errorf("vector index: unexpected status %d on %s", resp.StatusCode, path)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
