package ingestion

import (
	"context"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/storage"
	"github.com/totodo/allpassagent/vectorstore"
)

const (
	snippetLen = 200
	contentLen = 1000
)

// indexHandler upserts embedded chunks into the vector index and completes
// the document.
type indexHandler struct {
	docs   storage.DocumentRepository
	store  vectorstore.Store
	logger *slog.Logger
}

var _ handler = (*indexHandler)(nil)

func newIndexHandler(docs storage.DocumentRepository, store vectorstore.Store, logger *slog.Logger) *indexHandler {
	return &indexHandler{
		docs:   docs,
		store:  store,
		logger: logger.With("stage", "index"),
	}
}

func (h *indexHandler) handle(ctx context.Context, task *core.Task) error {
	if len(task.Vectors) != len(task.Chunks) {
		return ErrVectorMismatch
	}

	doc, err := h.docs.GetDocument(ctx, task.DocumentID)
	if err != nil {
		return err
	}

	records := make([]vectorstore.Record, len(task.Chunks))
	for i, chunk := range task.Chunks {
		records[i] = BuildRecord(doc, chunk, task.Vectors[i])
	}

	if err := h.store.Upsert(ctx, records); err != nil {
		return err
	}

	doc.VectorCount = len(records)
	if err := h.docs.PutDocument(ctx, doc); err != nil {
		return err
	}
	if err := h.docs.SetStatus(ctx, doc.Id, core.StatusCompleted, ""); err != nil {
		return err
	}

	h.logger.Info("indexed document", "documentId", doc.Id, "vectors", len(records))
	return nil
}

// BuildRecord produces the vector record for one embedded chunk.
// The metadata carries everything retrieval needs to present a hit without
// going back to the document store.
func BuildRecord(doc *core.Document, chunk core.Chunk, vector []float32) vectorstore.Record {
	page := chunk.PageNumber
	if page == 0 {
		page = chunk.Index + 1
	}
	pageType := chunk.PageType
	if pageType == "" {
		pageType = core.PageTypeChunk
	}

	return vectorstore.Record{
		ID:     chunk.VectorID(),
		Values: vector,
		Metadata: map[string]string{
			vectorstore.MetaFilename:   doc.Filename,
			vectorstore.MetaDocumentID: strconv.FormatUint(uint64(doc.Id), 10),
			vectorstore.MetaPage:       strconv.Itoa(page),
			vectorstore.MetaPageType:   string(pageType),
			vectorstore.MetaSnippet:    truncate(chunk.Content, snippetLen),
			vectorstore.MetaContent:    truncate(chunk.Content, contentLen),
			vectorstore.MetaModality:   Modality(doc.MediaKind),
		},
	}
}

// Modality maps a media kind to the modality tag used for secondary search.
func Modality(kind core.MediaKind) string {
	switch kind {
	case core.MediaPDF, core.MediaPPTX:
		return vectorstore.ModalityMultimedia
	default:
		return vectorstore.ModalityText
	}
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
