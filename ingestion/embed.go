package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/totodo/allpassagent/ai"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/storage"
)

// embedHandler turns chunk text into vectors in paced batches.
//
// A failed batch falls back to embedding its texts one by one; chunks that
// still fail are skipped so one bad chunk cannot block a whole document.
type embedHandler struct {
	queue      storage.TaskQueue
	embedder   ai.Embedder
	batchSize  int
	batchDelay time.Duration
	logger     *slog.Logger
}

var _ handler = (*embedHandler)(nil)

func newEmbedHandler(queue storage.TaskQueue, embedder ai.Embedder, batchSize int, batchDelay time.Duration, logger *slog.Logger) *embedHandler {
	return &embedHandler{
		queue:      queue,
		embedder:   embedder,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		logger:     logger.With("stage", "embed"),
	}
}

func (h *embedHandler) handle(ctx context.Context, task *core.Task) error {
	kept := make([]core.Chunk, 0, len(task.Chunks))
	vectors := make([][]float32, 0, len(task.Chunks))

	for start := 0; start < len(task.Chunks); start += h.batchSize {
		if start > 0 && h.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(h.batchDelay):
			}
		}

		end := min(start+h.batchSize, len(task.Chunks))
		batch := task.Chunks[start:end]
		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		batchVectors, err := h.embedder.EmbedTexts(ctx, texts)
		if err == nil && len(batchVectors) == len(batch) {
			kept = append(kept, batch...)
			vectors = append(vectors, batchVectors...)
			continue
		}
		if err != nil {
			h.logger.Warn("batch embedding failed, retrying chunks individually",
				"documentId", task.DocumentID, "batchStart", start, "err", err)
		} else {
			h.logger.Warn("batch embedding returned wrong count, retrying chunks individually",
				"documentId", task.DocumentID, "expected", len(batch), "received", len(batchVectors))
		}

		for i, chunk := range batch {
			vector, err := h.embedder.EmbedText(ctx, texts[i])
			if err != nil || len(vector) == 0 {
				h.logger.Warn("skipping chunk, embedding failed",
					"documentId", task.DocumentID, "chunkIndex", chunk.Index, "err", err)
				continue
			}
			kept = append(kept, chunk)
			vectors = append(vectors, vector)
		}
	}

	if len(kept) == 0 {
		return ErrAllEmbeddingsFailed
	}
	if len(kept) < len(task.Chunks) {
		h.logger.Warn("embedded with skips",
			"documentId", task.DocumentID,
			"embedded", len(kept),
			"skipped", len(task.Chunks)-len(kept))
	}

	return h.queue.Enqueue(ctx, core.TaskIndex, &core.Task{
		DocumentID: task.DocumentID,
		Kind:       core.TaskIndex,
		Chunks:     kept,
		Vectors:    vectors,
	})
}
