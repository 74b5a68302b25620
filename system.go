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


// Package allpassagent wires the document agent together: a badger-backed
// document store and durable task queues, an AI provider, a vector store,
// the ingestion pipeline, and the retrieval, recommendation and chat
// engines on top of them.
//
// Open builds the whole stack; the zero-configuration default runs against
// a local badger directory, an in-process vector store and an
// OpenAI-compatible endpoint on localhost. Every piece can be swapped
// through options, which is also how tests inject mocks.
package allpassagent

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/totodo/allpassagent/ai"
	"github.com/totodo/allpassagent/ai/openai"
	"github.com/totodo/allpassagent/chat"
	"github.com/totodo/allpassagent/ingestion"
	"github.com/totodo/allpassagent/recommend"
	"github.com/totodo/allpassagent/reindex"
	"github.com/totodo/allpassagent/retrieval"
	"github.com/totodo/allpassagent/server"
	"github.com/totodo/allpassagent/storage"
	storagebadger "github.com/totodo/allpassagent/storage/badger"
	"github.com/totodo/allpassagent/vectorstore"
	"github.com/totodo/allpassagent/vectorstore/memory"
)

// System is the assembled application.
type System struct {
	Docs        storage.DocumentRepository
	Queue       storage.TaskQueue
	Provider    ai.AIProvider
	VectorStore vectorstore.Store
	Pipeline    *ingestion.Pipeline
	Retriever   *retrieval.Engine
	Recommender *recommend.Engine
	Chat        *chat.Orchestrator

	backend *storagebadger.Backend
	logger  *slog.Logger
}

type options struct {
	dataDir      string
	inMemory     bool
	uploadDir    string
	logger       *slog.Logger
	aiConfig     *ai.Config
	provider     ai.AIProvider
	store        vectorstore.Store
	pipelineOpts []ingestion.Option
}

// Option configures Open.
type Option func(*options) error

// WithDataDir sets the directory holding the badger database and uploads.
// Default is "data".
func WithDataDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.New("data dir must not be empty")
		}
		o.dataDir = dir
		return nil
	}
}

// WithInMemory keeps all storage in memory. Nothing survives a restart;
// meant for tests and throwaway runs.
func WithInMemory() Option {
	return func(o *options) error {
		o.inMemory = true
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithAIConfig sets the AI endpoint configuration used to build the default
// provider. Ignored when WithAIProvider is given.
func WithAIConfig(config *ai.Config) Option {
	return func(o *options) error {
		if config == nil {
			return errors.New("ai config must not be nil")
		}
		o.aiConfig = config
		return nil
	}
}

// WithAIProvider swaps in a pre-built AI provider.
func WithAIProvider(provider ai.AIProvider) Option {
	return func(o *options) error {
		if provider == nil {
			return errors.New("ai provider must not be nil")
		}
		o.provider = provider
		return nil
	}
}

// WithVectorStore swaps in a pre-built vector store. Default is the
// in-process memory store.
func WithVectorStore(store vectorstore.Store) Option {
	return func(o *options) error {
		if store == nil {
			return errors.New("vector store must not be nil")
		}
		o.store = store
		return nil
	}
}

// WithPipelineOptions forwards extra options to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) Option {
	return func(o *options) error {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
		return nil
	}
}

// Open builds the system. On failure everything already opened is closed
// again.
func Open(opts ...Option) (*System, error) {
	o := &options{
		dataDir: "data",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.uploadDir == "" {
		o.uploadDir = filepath.Join(o.dataDir, "uploads")
	}

	backend, err := storagebadger.OpenBackend(filepath.Join(o.dataDir, "db"), o.inMemory)
	if err != nil {
		return nil, err
	}

	s := &System{backend: backend, logger: o.logger}
	docs := storagebadger.NewDocumentRepository(backend)
	s.Docs = docs

	queue, err := storagebadger.NewTaskQueue(backend)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	s.Queue = queue

	s.Provider = o.provider
	if s.Provider == nil {
		config := o.aiConfig
		if config == nil {
			config = ai.DefaultConfig()
		}
		s.Provider, err = openai.NewProvider(config)
		if err != nil {
			return nil, errors.Join(err, s.Close())
		}
	}

	s.VectorStore = o.store
	if s.VectorStore == nil {
		s.VectorStore = memory.NewStore()
	}

	pipelineOpts := append([]ingestion.Option{
		ingestion.WithLogger(o.logger),
		ingestion.WithUploadDir(o.uploadDir),
	}, o.pipelineOpts...)
	s.Pipeline, err = ingestion.NewPipeline(s.Docs, s.Queue, s.Provider, s.VectorStore, pipelineOpts...)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}

	s.Retriever, err = retrieval.NewEngine(s.VectorStore, s.Provider, retrieval.WithLogger(o.logger))
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}

	s.Recommender, err = recommend.NewEngine(s.VectorStore, s.Provider, recommend.WithLogger(o.logger))
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}

	s.Chat, err = chat.NewOrchestrator(s.Retriever, s.Recommender, s.Provider.Chat(), chat.WithLogger(o.logger))
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}

	return s, nil
}

// Start launches the background ingestion worker.
func (s *System) Start(ctx context.Context) error {
	return s.Pipeline.Start(ctx)
}

// Server builds the HTTP boundary over the system.
func (s *System) Server(opts ...server.Option) (*server.Server, error) {
	opts = append([]server.Option{server.WithLogger(s.logger)}, opts...)
	return server.NewServer(s.Docs, s.Pipeline, s.Chat, opts...)
}

// Reindexer builds the index rebuild tool over the system's stores.
func (s *System) Reindexer(opts ...reindex.Option) (*reindex.Reindexer, error) {
	opts = append([]reindex.Option{reindex.WithLogger(s.logger)}, opts...)
	return reindex.NewReindexer(s.Docs, s.Queue, s.Provider, s.VectorStore, opts...)
}

// Close stops the worker and releases everything in reverse dependency
// order. Safe to call on a partially opened system.
func (s *System) Close() error {
	var errs []error

	if s.Pipeline != nil {
		s.Pipeline.Release()
	}
	if s.Recommender != nil {
		s.Recommender.Release()
	}
	if s.VectorStore != nil {
		errs = append(errs, s.VectorStore.Close())
	}
	if s.Provider != nil {
		errs = append(errs, s.Provider.Close())
	}
	if s.Queue != nil {
		errs = append(errs, s.Queue.Close())
	}
	if s.Docs != nil {
		errs = append(errs, s.Docs.Close())
	}
	if s.backend != nil {
		errs = append(errs, s.backend.Close())
	}
	return errors.Join(errs...)
}
