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


package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/totodo/allpassagent/ai"
)

// Reranker implements ai.RelevanceScorer against a standalone rerank
// service exposing the common POST /rerank API (Jina, TEI, Cohere-style).
type Reranker struct {
	host   string
	model  string
	client *http.Client
	logger *slog.Logger
}

// newReranker is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newReranker(config *ai.Config) (*Reranker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Reranker{
		host:  config.RerankHost,
		model: config.RerankModel,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default().With("component", "openai-reranker"),
	}, nil
}

// NewReranker creates a new relevance scorer using the provided configuration.
//
// Returns ai.RelevanceScorer interface to enforce abstraction.
func NewReranker(config *ai.Config) (ai.RelevanceScorer, error) {
	return newReranker(config)
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float32 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

// ScoreRelevance scores each document's relevance to the query via the
// rerank service.
func (r *Reranker) ScoreRelevance(ctx context.Context, query string, documents []string) ([]ai.RelevanceScore, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      len(documents),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.host+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("rerank request failed", "err", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.logger.Error("rerank service returned error", "status", resp.StatusCode, "body", string(snippet))
		return nil, fmt.Errorf("rerank service: unexpected status %d", resp.StatusCode)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		r.logger.Error("failed to decode rerank response", "err", err)
		return nil, err
	}

	scores := make([]ai.RelevanceScore, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		if result.Index < 0 || result.Index >= len(documents) {
			r.logger.Warn("rerank result index out of range", "index", result.Index)
			continue
		}
		scores = append(scores, ai.RelevanceScore{Index: result.Index, Score: result.RelevanceScore})
	}

	r.logger.Debug("scored documents", "count", len(scores))
	return scores, nil
}
