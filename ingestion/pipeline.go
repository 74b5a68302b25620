package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/totodo/allpassagent/ai"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/storage"
	"github.com/totodo/allpassagent/vectorstore"
)

// taskOrder is the strict priority in which the worker drains the queues.
var taskOrder = []core.TaskKind{core.TaskParse, core.TaskEmbed, core.TaskIndex}

// Pipeline orchestrates asynchronous document ingestion: parse, embed, index.
//
// Uploads return as soon as the document record and its parse task are
// persisted. A single background worker drains the three durable queues in
// priority order, so each stage has exactly one consumer and queue pops
// need no cross-process coordination.
type Pipeline struct {
	docs     storage.DocumentRepository
	queue    storage.TaskQueue
	provider ai.AIProvider
	store    vectorstore.Store
	pool     *ants.Pool
	handlers map[core.TaskKind]handler

	uploadDir       string
	chunkSize       int
	overlap         int
	embedBatchSize  int
	embedBatchDelay time.Duration
	idleDelay       time.Duration
	retryDelay      time.Duration
	logger          *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithUploadDir sets the directory where submitted document bytes are kept.
// Default is "uploads".
func WithUploadDir(dir string) Option {
	return func(p *Pipeline) error {
		if dir == "" {
			return fmt.Errorf("upload dir cannot be empty")
		}
		p.uploadDir = dir
		return nil
	}
}

// WithChunkSize sets the chunk target length in bytes. Default is 1000.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("chunk size must be positive, got %d", size)
		}
		p.chunkSize = size
		return nil
	}
}

// WithOverlap sets the chunk overlap window in bytes. Default is 200.
func WithOverlap(overlap int) Option {
	return func(p *Pipeline) error {
		if overlap < 0 {
			return fmt.Errorf("overlap cannot be negative, got %d", overlap)
		}
		p.overlap = overlap
		return nil
	}
}

// WithEmbedBatchSize sets how many chunks are embedded per request.
// Default is 20.
func WithEmbedBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("embed batch size must be positive, got %d", size)
		}
		p.embedBatchSize = size
		return nil
	}
}

// WithEmbedBatchDelay sets the pause between embedding batches, pacing load
// on the embedding service. Default is 100ms.
func WithEmbedBatchDelay(delay time.Duration) Option {
	return func(p *Pipeline) error {
		if delay < 0 {
			return fmt.Errorf("embed batch delay cannot be negative")
		}
		p.embedBatchDelay = delay
		return nil
	}
}

// WithIdleDelay sets how long the worker sleeps when all queues are empty.
// Default is 250ms.
func WithIdleDelay(delay time.Duration) Option {
	return func(p *Pipeline) error {
		if delay <= 0 {
			return fmt.Errorf("idle delay must be positive")
		}
		p.idleDelay = delay
		return nil
	}
}

// WithRetryDelay sets the fixed pause before a failed task is re-enqueued.
// Default is 1s.
func WithRetryDelay(delay time.Duration) Option {
	return func(p *Pipeline) error {
		if delay < 0 {
			return fmt.Errorf("retry delay cannot be negative")
		}
		p.retryDelay = delay
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	docs storage.DocumentRepository,
	queue storage.TaskQueue,
	provider ai.AIProvider,
	store vectorstore.Store,
	opts ...Option,
) (*Pipeline, error) {
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

	pool, err := ants.NewPool(2)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		docs:            docs,
		queue:           queue,
		provider:        provider,
		store:           store,
		pool:            pool,
		uploadDir:       "uploads",
		chunkSize:       1000,
		overlap:         200,
		embedBatchSize:  20,
		embedBatchDelay: 100 * time.Millisecond,
		idleDelay:       250 * time.Millisecond,
		retryDelay:      time.Second,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			pool.Release()
			return nil, optErr
		}
	}

	// Handlers are created after options are applied so they get final config.
	logger := p.logger.With("component", "ingestion")
	p.logger = logger
	p.handlers = map[core.TaskKind]handler{
		core.TaskParse: newParseHandler(docs, queue, p.chunkSize, p.overlap, logger),
		core.TaskEmbed: newEmbedHandler(queue, provider.Embedder(), p.embedBatchSize, p.embedBatchDelay, logger),
		core.TaskIndex: newIndexHandler(docs, store, logger),
	}

	return p, nil
}

// SubmitDocument accepts raw document bytes, persists the document record
// and its parse task, and returns without waiting for processing.
//
// The document ID is derived from the content, so re-submitting identical
// bytes yields the same document and processing overwrites rather than
// duplicates.
func (p *Pipeline) SubmitDocument(ctx context.Context, filename string, kind core.MediaKind, data []byte) (*core.Document, error) {
	if err := core.ValidateMediaKind(kind); err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, core.ErrEmptyFilename
	}
	if len(data) == 0 {
		return nil, core.ErrEmptyContent
	}

	id := core.IDFromContent(string(data))

	if err := os.MkdirAll(p.uploadDir, 0o755); err != nil {
		return nil, err
	}
	location := filepath.Join(p.uploadDir, fmt.Sprintf("%d_%s", id, filepath.Base(filename)))
	if err := os.WriteFile(location, data, 0o644); err != nil {
		return nil, err
	}

	doc := &core.Document{
		Id:             id,
		Filename:       filename,
		SourceLocation: location,
		MediaKind:      kind,
		Status:         core.StatusPending,
	}
	if err := p.docs.PutDocument(ctx, doc); err != nil {
		return nil, err
	}

	err := p.queue.Enqueue(ctx, core.TaskParse, &core.Task{
		DocumentID:     id,
		Kind:           core.TaskParse,
		SourceLocation: location,
		MediaKind:      kind,
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("accepted document", "documentId", id, "filename", filename, "kind", kind)
	return doc, nil
}

// Start launches the background worker. It returns immediately; call Stop
// or Release to shut the worker down.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return fmt.Errorf("pipeline already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	err := p.pool.Submit(func() {
		defer close(done)
		p.run(runCtx)
	})
	if err != nil {
		p.cancel = nil
		p.done = nil
		cancel()
		return err
	}
	return nil
}

// Stop halts the background worker and waits for the in-flight task to
// finish. The pipeline can be started again afterwards.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Release stops the worker and releases the pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.Stop()
	p.pool.Release()
}

// ProcessPending synchronously drains all queues until they are empty.
// Intended for batch tooling and tests; do not call while the background
// worker is running.
func (p *Pipeline) ProcessPending(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		task := p.next(ctx)
		if task == nil {
			return nil
		}
		p.process(ctx, task)
	}
}

func (p *Pipeline) run(ctx context.Context) {
	p.logger.Info("ingestion worker started")
	for {
		if ctx.Err() != nil {
			p.logger.Info("ingestion worker stopped")
			return
		}
		task := p.next(ctx)
		if task == nil {
			select {
			case <-ctx.Done():
			case <-time.After(p.idleDelay):
			}
			continue
		}
		p.process(ctx, task)
	}
}

// next pops the first available task in priority order.
func (p *Pipeline) next(ctx context.Context) *core.Task {
	for _, kind := range taskOrder {
		task, err := p.queue.Dequeue(ctx, kind)
		if err != nil {
			p.logger.Error("error dequeuing task", "queue", kind, "err", err)
			continue
		}
		if task != nil {
			return task
		}
	}
	return nil
}

// process runs one task through its stage handler and applies the retry
// policy on failure.
func (p *Pipeline) process(ctx context.Context, task *core.Task) {
	h, ok := p.handlers[task.Kind]
	if !ok {
		p.logger.Error("dropping task with unknown kind", "kind", task.Kind, "taskId", task.Id)
		return
	}

	err := h.handle(ctx, task)
	if err == nil {
		return
	}

	if ctx.Err() != nil {
		// Shutdown mid-task: push the task back untouched so it is not
		// lost and does not burn a retry.
		if enqErr := p.queue.Enqueue(context.Background(), task.Kind, task); enqErr != nil {
			p.logger.Error("failed to requeue task on shutdown", "taskId", task.Id, "err", enqErr)
		}
		return
	}

	task.RetryCount++
	if task.Exhausted() {
		p.logger.Error("task failed permanently",
			"taskId", task.Id,
			"documentId", task.DocumentID,
			"kind", task.Kind,
			"retries", task.RetryCount-1,
			"err", err)
		if statusErr := p.docs.SetStatus(ctx, task.DocumentID, core.StatusFailed, err.Error()); statusErr != nil {
			p.logger.Error("failed to mark document failed", "documentId", task.DocumentID, "err", statusErr)
		}
		return
	}

	p.logger.Warn("task failed, will retry",
		"taskId", task.Id,
		"documentId", task.DocumentID,
		"kind", task.Kind,
		"attempt", task.RetryCount,
		"err", err)

	if p.retryDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(p.retryDelay):
		}
	}
	if enqErr := p.queue.Enqueue(ctx, task.Kind, task); enqErr != nil {
		p.logger.Error("failed to requeue task", "taskId", task.Id, "err", enqErr)
	}
}
