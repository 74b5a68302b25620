package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := IDFromContent("lecture-notes.pdf|/uploads/lecture-notes.pdf")
		b := IDFromContent("lecture-notes.pdf|/uploads/lecture-notes.pdf")
		assert.Equal(t, a, b)
	})

	t.Run("different content different id", func(t *testing.T) {
		a := IDFromContent("alpha")
		b := IDFromContent("beta")
		assert.NotEqual(t, a, b)
	})

	t.Run("empty content is valid", func(t *testing.T) {
		assert.NotPanics(t, func() { IDFromContent("") })
	})
}

func TestChunkVectorID(t *testing.T) {
	chunk := &Chunk{DocumentID: 42, Index: 7}
	assert.Equal(t, "42_chunk_7", chunk.VectorID())

	// Same document and index always map to the same record id,
	// which is what makes re-ingestion overwrite instead of duplicate.
	again := &Chunk{DocumentID: 42, Index: 7, Content: "different text"}
	assert.Equal(t, chunk.VectorID(), again.VectorID())
}

func TestTaskExhausted(t *testing.T) {
	task := &Task{MaxRetries: 3}

	for i := 0; i <= 3; i++ {
		task.RetryCount = i
		assert.False(t, task.Exhausted(), "retry %d should be within budget", i)
	}

	task.RetryCount = 4
	assert.True(t, task.Exhausted())
}
