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


package mock

import "github.com/totodo/allpassagent/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock embedder, scorer and chat model instances.
type MockProvider struct {
	embedder *MockEmbedder
	scorer   *MockRelevanceScorer
	chat     *MockChatModel
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockScorer()/GetMockChat() to access concrete
// types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
		scorer:   NewMockRelevanceScorer(),
		chat:     NewMockChatModel(),
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Reranker returns the mock relevance scorer.
func (p *MockProvider) Reranker() ai.RelevanceScorer {
	return p.scorer
}

// Chat returns the mock chat model.
func (p *MockProvider) Chat() ai.ChatModel {
	return p.chat
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockScorer returns the underlying mock scorer for test assertions.
func (p *MockProvider) GetMockScorer() *MockRelevanceScorer {
	return p.scorer
}

// GetMockChat returns the underlying mock chat model for test assertions.
func (p *MockProvider) GetMockChat() *MockChatModel {
	return p.chat
}
