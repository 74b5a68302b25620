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
	"log/slog"
	"time"

	"github.com/totodo/allpassagent/ai"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/ingestion"
	"github.com/totodo/allpassagent/storage"
	"github.com/totodo/allpassagent/vectorstore"
)

const (
	defaultBatchSize     = 20
	defaultRetryAttempts = 3
	defaultRetryDelay    = time.Second
)

// Reindexer rebuilds the vector index from the chunks in the document
// store. The index is a projection; when it is lost or corrupted, Run
// re-embeds every stored chunk and upserts it again. Documents whose
// chunks are gone are sent back through the parse stage instead.
type Reindexer struct {
	docs     storage.DocumentRepository
	queue    storage.TaskQueue
	embedder ai.Embedder
	store    vectorstore.Store
	logger   *slog.Logger

	batchSize     int
	retryAttempts int
	retryDelay    time.Duration
}

// Report summarizes one reindex run.
type Report struct {
	Documents int // documents examined
	Reindexed int // documents whose vectors were rebuilt
	Requeued  int // documents re-enqueued for parsing
	Failed    int // documents that could not be reindexed
}

// Option configures a Reindexer.
type Option func(*Reindexer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reindexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per request.
// Default is 20.
func WithBatchSize(n int) Option {
	return func(r *Reindexer) error {
		if n < 1 {
			return errors.New("batch size must be at least 1")
		}
		r.batchSize = n
		return nil
	}
}

// WithRetryAttempts sets how often a failed embed or upsert is retried.
// Default is 3.
func WithRetryAttempts(n int) Option {
	return func(r *Reindexer) error {
		if n < 1 {
			return errors.New("retry attempts must be at least 1")
		}
		r.retryAttempts = n
		return nil
	}
}

// WithRetryDelay sets the initial backoff delay between retries.
// Default is 1s.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Reindexer) error {
		if d < 0 {
			return errors.New("retry delay must not be negative")
		}
		r.retryDelay = d
		return nil
	}
}

// NewReindexer creates a reindexer over the given stores and AI provider.
func NewReindexer(docs storage.DocumentRepository, queue storage.TaskQueue, provider ai.AIProvider, store vectorstore.Store, opts ...Option) (*Reindexer, error) {
	if docs == nil {
		return nil, ErrDocumentStoreRequired
	}
	if queue == nil {
		return nil, ErrTaskQueueRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}

	r := &Reindexer{
		docs:          docs,
		queue:         queue,
		embedder:      provider.Embedder(),
		store:         store,
		logger:        slog.Default(),
		batchSize:     defaultBatchSize,
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "reindex")
	return r, nil
}

// Run rebuilds the index for every stored document and reports what it did.
// It keeps going past per-document failures; only a context cancellation or
// a failure to list documents aborts the run.
func (r *Reindexer) Run(ctx context.Context) (*Report, error) {
	documents, err := r.docs.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, doc := range documents {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Documents++

		switch err := r.reindexDocument(ctx, doc); {
		case err == nil:
			report.Reindexed++
		case errors.Is(err, errRequeued):
			report.Requeued++
		default:
			report.Failed++
			r.logger.Error("document reindex failed",
				"documentId", doc.Id, "filename", doc.Filename, "error", err)
		}
	}

	r.logger.Info("reindex finished",
		"documents", report.Documents, "reindexed", report.Reindexed,
		"requeued", report.Requeued, "failed", report.Failed)
	return report, nil
}

// errRequeued marks a document sent back through the parse stage.
var errRequeued = errors.New("document requeued for parsing")

func (r *Reindexer) reindexDocument(ctx context.Context, doc *core.Document) error {
	chunks, err := r.docs.GetChunks(ctx, doc.Id)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return r.requeue(ctx, doc)
	}

	for start := 0; start < len(chunks); start += r.batchSize {
		end := min(start+r.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		var vectors [][]float32
		err := RetryWithBackoff(ctx, r.retryAttempts, r.retryDelay, func() error {
			var embedErr error
			vectors, embedErr = r.embedder.EmbedTexts(ctx, texts)
			return embedErr
		})
		if err != nil {
			return err
		}
		if len(vectors) != len(batch) {
			return ErrVectorMismatch
		}

		records := make([]vectorstore.Record, len(batch))
		for i, chunk := range batch {
			records[i] = ingestion.BuildRecord(doc, chunk, vectors[i])
		}
		err = RetryWithBackoff(ctx, r.retryAttempts, r.retryDelay, func() error {
			return r.store.Upsert(ctx, records)
		})
		if err != nil {
			return err
		}
	}

	doc.VectorCount = len(chunks)
	if err := r.docs.PutDocument(ctx, doc); err != nil {
		return err
	}
	if err := r.docs.SetStatus(ctx, doc.Id, core.StatusCompleted, ""); err != nil {
		return err
	}

	r.logger.Info("document reindexed", "documentId", doc.Id, "vectors", len(chunks))
	return nil
}

// requeue sends a chunkless document back through the parse stage.
func (r *Reindexer) requeue(ctx context.Context, doc *core.Document) error {
	if doc.SourceLocation == "" {
		return ErrNoSource
	}

	err := r.queue.Enqueue(ctx, core.TaskParse, &core.Task{
		DocumentID:     doc.Id,
		Kind:           core.TaskParse,
		SourceLocation: doc.SourceLocation,
		MediaKind:      doc.MediaKind,
	})
	if err != nil {
		return err
	}
	if err := r.docs.SetStatus(ctx, doc.Id, core.StatusPending, ""); err != nil {
		return err
	}

	r.logger.Warn("document has no stored chunks, requeued for parsing",
		"documentId", doc.Id, "filename", doc.Filename)
	return errRequeued
}
