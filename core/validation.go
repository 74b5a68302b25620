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


package core

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Filename must not be empty
//   - MediaKind must be a known kind
//   - Status must be a known status (empty is allowed before submission)
//
// NOT validated (populated by the pipeline):
//   - PageCount, ChunkCount, VectorCount
//   - ProcessedAt
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}

	if err := ValidateMediaKind(doc.MediaKind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if doc.Status != "" {
		switch doc.Status {
		case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		default:
			return fmt.Errorf("%w: %w: %q", ErrInvalidDocument, ErrInvalidStatus, doc.Status)
		}
	}

	return nil
}

// ValidateTask validates a Task according to domain rules.
//
// Validation rules:
//   - Kind must be a known task kind
//   - DocumentID must be set
//   - RetryCount must not exceed MaxRetries
//   - parse tasks must carry a source location
//   - embed and index tasks must carry at least one chunk
func ValidateTask(task *Task) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", ErrInvalidTask)
	}

	if task.DocumentID == 0 {
		return fmt.Errorf("%w: document id required", ErrInvalidTask)
	}

	if task.Exhausted() {
		return fmt.Errorf("%w: %w", ErrInvalidTask, ErrRetryBudget)
	}

	switch task.Kind {
	case TaskParse:
		if task.SourceLocation == "" {
			return fmt.Errorf("%w: parse task requires a source location", ErrInvalidTask)
		}
	case TaskEmbed, TaskIndex:
		if len(task.Chunks) == 0 {
			return fmt.Errorf("%w: %s task requires chunks", ErrInvalidTask, task.Kind)
		}
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidTask, ErrInvalidTaskKind, task.Kind)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidChunk, chunk.Index)
	}

	if chunk.EndChar < chunk.StartChar {
		return fmt.Errorf("%w: span [%d,%d) is inverted", ErrInvalidChunk, chunk.StartChar, chunk.EndChar)
	}

	return nil
}

// MediaKindForFilename infers the media kind from the filename extension.
func MediaKindForFilename(filename string) (MediaKind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text", ".log":
		return MediaText, nil
	case ".md", ".markdown":
		return MediaMarkdown, nil
	case ".docx", ".doc":
		return MediaDocx, nil
	case ".pdf":
		return MediaPDF, nil
	case ".pptx", ".ppt":
		return MediaPPTX, nil
	default:
		return "", fmt.Errorf("%w: unrecognized extension in %q", ErrInvalidMediaKind, filename)
	}
}

// ValidateMediaKind validates that a MediaKind has a known value.
func ValidateMediaKind(kind MediaKind) error {
	switch kind {
	case MediaText, MediaMarkdown, MediaDocx, MediaPDF, MediaPPTX:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMediaKind, kind)
	}
}
