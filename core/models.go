package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so that re-submitting the same
// source yields the same identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// MediaKind identifies the declared format of an uploaded document.
type MediaKind string

const (
	// MediaText is plain unstructured text.
	MediaText MediaKind = "text"
	// MediaMarkdown is markdown or other lightweight rich text.
	MediaMarkdown MediaKind = "markdown"
	// MediaDocx is an office word-processing document (pre-extracted text).
	MediaDocx MediaKind = "docx"
	// MediaPDF is a paginated document; pages are separated by form feeds.
	MediaPDF MediaKind = "pdf"
	// MediaPPTX is a slide deck; slides are separated by form feeds.
	MediaPPTX MediaKind = "pptx"
)

// DocumentStatus tracks a document through the ingestion pipeline.
// Transitions are monotonic (pending -> processing -> completed) except that
// a retried task may move a document from failed back to processing.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the source of truth for an ingested document. The vector index
// is a derived, rebuildable projection of its chunks.
type Document struct {
	Id             ID
	Filename       string
	SourceLocation string // where the raw bytes live, used by parse and reindex
	MediaKind      MediaKind
	Status         DocumentStatus
	PageCount      int
	ChunkCount     int
	VectorCount    int
	Error          string // last processing error, empty unless Status is failed
	UploadedAt     time.Time
	ProcessedAt    time.Time
}

// PageType tags where a chunk's page number came from.
type PageType string

const (
	// PageTypeSlide marks a chunk cut from a native slide.
	PageTypeSlide PageType = "slide"
	// PageTypeChunk marks a chunk whose page number is synthetic (chunk ordinal).
	PageTypeChunk PageType = "chunk"
	// PageTypePage marks a chunk cut from a native or synthetic text page.
	PageTypePage PageType = "page"
)

// Chunk is a bounded span of extracted document text, the unit of embedding
// and retrieval. Within one document, Index values are contiguous from 0 and
// character spans overlap only by the configured overlap window.
type Chunk struct {
	DocumentID ID
	Index      int
	Content    string
	PageNumber int // 0 when the source has no page structure
	PageType   PageType
	StartChar  int
	EndChar    int
}

// VectorID returns the identifier of the chunk's vector record.
// The id is derived from document and chunk so that duplicate processing
// overwrites rather than duplicates records.
func (c *Chunk) VectorID() string {
	return fmt.Sprintf("%d_chunk_%d", c.DocumentID, c.Index)
}

// TaskKind names the three pipeline stages and their queues.
type TaskKind string

const (
	TaskParse TaskKind = "parse"
	TaskEmbed TaskKind = "embed"
	TaskIndex TaskKind = "index"
)

// DefaultMaxRetries bounds how often a failed task is re-enqueued.
const DefaultMaxRetries = 3

// Task is a unit of pipeline work persisted in a durable queue.
// The payload fields used depend on Kind: parse tasks carry SourceLocation
// and MediaKind, embed tasks carry Chunks, index tasks carry Chunks plus
// their Vectors.
type Task struct {
	Id             ID
	DocumentID     ID
	Kind           TaskKind
	SourceLocation string
	MediaKind      MediaKind
	Chunks         []Chunk
	Vectors        [][]float32
	CreatedAt      time.Time
	RetryCount     int
	MaxRetries     int
}

// Exhausted reports whether the task has used up its retry budget.
func (t *Task) Exhausted() bool {
	return t.RetryCount > t.MaxRetries
}

// SearchMatch is a single retrieval hit. Transient, produced per query.
type SearchMatch struct {
	Content    string
	Filename   string
	DocumentID string
	Page       int
	PageType   PageType
	Score      float32 // similarity in [0,1]
}

// RerankResult is a SearchMatch after second-pass scoring.
// Score holds the fused value used for final ordering.
type RerankResult struct {
	Match         SearchMatch
	OriginalScore float32
	RerankScore   float32
	Score         float32
}

// QuestionCategory is the closed set of recommendation categories.
type QuestionCategory string

const (
	CategoryBasicConcept QuestionCategory = "basic-concept"
	CategoryPractice     QuestionCategory = "practice"
	CategoryCaseStudy    QuestionCategory = "case-study"
	CategoryDeepDive     QuestionCategory = "deep-dive"
	CategoryRelatedTopic QuestionCategory = "related-topic"
)

// RecommendedQuestion is a follow-up question derived from the conversation
// and retrieved sources. Transient, regenerated per turn.
type RecommendedQuestion struct {
	Id         string           `json:"id"`
	Question   string           `json:"question"`
	Category   QuestionCategory `json:"category"`
	Relevance  float32          `json:"relevance"`
	Context    string           `json:"context,omitempty"`
	SourceFile string           `json:"sourceFile,omitempty"`
}

// TurnRole identifies the author of a conversation turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Turn is one prior message in a conversation.
type Turn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

// Intent is the closed set of classified user intents.
type Intent string

const (
	IntentProblemSolving Intent = "problem-solving"
	IntentComparison     Intent = "comparison"
	IntentLearning       Intent = "learning"
	IntentGeneral        Intent = "general"
)

// ConversationContext carries the current message and a bounded window of
// prior turns. Topics and Intent are derived per request and never persisted.
type ConversationContext struct {
	Message string
	History []Turn
	Topics  []string
	Intent  Intent
}
