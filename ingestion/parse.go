package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/parser"
	"github.com/totodo/allpassagent/storage"
)

// parseHandler extracts and chunks document text, then hands the chunks to
// the embed stage.
type parseHandler struct {
	docs      storage.DocumentRepository
	queue     storage.TaskQueue
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

var _ handler = (*parseHandler)(nil)

func newParseHandler(docs storage.DocumentRepository, queue storage.TaskQueue, chunkSize, overlap int, logger *slog.Logger) *parseHandler {
	return &parseHandler{
		docs:      docs,
		queue:     queue,
		chunkSize: chunkSize,
		overlap:   overlap,
		logger:    logger.With("stage", "parse"),
	}
}

func (h *parseHandler) handle(ctx context.Context, task *core.Task) error {
	if err := h.docs.SetStatus(ctx, task.DocumentID, core.StatusProcessing, ""); err != nil {
		return err
	}

	data, err := os.ReadFile(task.SourceLocation)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	parsed, err := parser.Parse(data, task.MediaKind)
	if err != nil {
		return err
	}

	chunks := parser.ChunkText(parsed.Content, h.chunkSize, h.overlap, parsed.Pages)
	if len(chunks) == 0 {
		return ErrNoChunks
	}
	for i := range chunks {
		chunks[i].DocumentID = task.DocumentID
	}

	if err := h.docs.PutChunks(ctx, task.DocumentID, chunks); err != nil {
		return err
	}

	doc, err := h.docs.GetDocument(ctx, task.DocumentID)
	if err != nil {
		return err
	}
	doc.PageCount = parsed.PageCount()
	doc.ChunkCount = len(chunks)
	if err := h.docs.PutDocument(ctx, doc); err != nil {
		return err
	}

	h.logger.Info("parsed document",
		"documentId", task.DocumentID,
		"pages", doc.PageCount,
		"chunks", len(chunks))

	return h.queue.Enqueue(ctx, core.TaskEmbed, &core.Task{
		DocumentID: task.DocumentID,
		Kind:       core.TaskEmbed,
		Chunks:     chunks,
	})
}
