package vectorstore

import "context"

// Record is one embedded chunk as stored in the vector index.
// The index is a derived projection of the document store; records can be
// rebuilt from chunks at any time.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]string
}

// Match is a query hit with its similarity score in [0,1].
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Filter restricts a query to records whose metadata contains every listed
// key with exactly the listed value. A nil filter matches everything.
type Filter map[string]string

// Metadata keys written by the indexing stage and read back at query time.
const (
	MetaFilename   = "filename"
	MetaDocumentID = "documentId"
	MetaPage       = "page"
	MetaPageType   = "pageType"
	MetaSnippet    = "snippet"
	MetaContent    = "content"
	MetaModality   = "modality"
)

// Modality values stored under MetaModality.
const (
	ModalityText       = "text"
	ModalityMultimedia = "multimedia"
)

// Store is the vector index. Implementations must be thread-safe.
type Store interface {
	// Upsert writes records, overwriting any with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to topK records most similar to the vector,
	// most similar first.
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error)

	// Delete removes records by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Close releases resources held by the store.
	Close() error
}
