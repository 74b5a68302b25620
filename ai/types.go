package ai

// RelevanceScore is one document's second-pass score.
// Index refers to the position of the document in the scored slice.
type RelevanceScore struct {
	Index int
	Score float32
}
