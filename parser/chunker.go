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


package parser

import (
	"unicode/utf8"

	"github.com/totodo/allpassagent/core"
)

const (
	// DefaultChunkSize is the target chunk length in bytes.
	DefaultChunkSize = 1000

	// DefaultOverlap is how many trailing bytes of a chunk are repeated at
	// the start of the next one.
	DefaultOverlap = 200
)

// ChunkText cuts extracted text into retrieval chunks.
//
// Chunks grow by whole sentences until appending the next sentence would
// exceed chunkSize, then the chunk is emitted and the next one is seeded
// with the trailing overlap window of the previous chunk, aligned to a word
// boundary. A sentence longer than chunkSize becomes a chunk of its own.
//
// When pages is non-nil each page is chunked separately, so chunks never
// straddle a page boundary and each carries its page number and type. Chunk
// indexes are contiguous from 0 across the whole document either way, and
// StartChar/EndChar are spans into the full document text.
//
// The caller fills in DocumentID.
func ChunkText(text string, chunkSize, overlap int, pages []Page) []core.Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	if len(pages) == 0 {
		return chunkSpan(nil, text, 0, chunkSize, overlap, 0, core.PageTypeChunk)
	}

	var chunks []core.Chunk
	for _, page := range pages {
		chunks = chunkSpan(chunks, page.Content, page.StartChar, chunkSize, overlap, page.Number, page.Type)
	}
	return chunks
}

// chunkSpan chunks one stretch of text, appending to chunks and continuing
// its index numbering. base is the stretch's offset within the document.
func chunkSpan(chunks []core.Chunk, text string, base, chunkSize, overlap, pageNumber int, pageType core.PageType) []core.Chunk {
	curStart := 0
	curEnd := 0
	for _, unitEnd := range sentenceEnds(text) {
		if curEnd > curStart && unitEnd-curStart > chunkSize {
			chunks = emit(chunks, text, curStart, curEnd, base, pageNumber, pageType)
			curStart = overlapStart(text, curStart, curEnd, overlap)
		}
		curEnd = unitEnd
	}
	if curEnd > curStart {
		chunks = emit(chunks, text, curStart, curEnd, base, pageNumber, pageType)
	}
	return chunks
}

// sentenceEnds returns the end offsets of consecutive sentence units.
// Units are contiguous and cover the text, so chunk spans can only overlap
// through the explicit overlap window.
func sentenceEnds(text string) []int {
	var ends []int
	for i, r := range text {
		switch r {
		case '.', '!', '?', '。', '！', '？', '\n':
			ends = append(ends, i+utf8.RuneLen(r))
		}
	}
	if n := len(text); n > 0 && (len(ends) == 0 || ends[len(ends)-1] != n) {
		ends = append(ends, n)
	}
	return ends
}

// overlapStart picks where the next chunk begins: overlap bytes back from
// the emitted chunk's end, advanced to a word boundary. When the window
// would not move the chunk forward, overlap is skipped entirely.
func overlapStart(text string, curStart, curEnd, overlap int) int {
	if overlap <= 0 {
		return curEnd
	}
	ns := curEnd - overlap
	if ns <= curStart {
		return curEnd
	}
	for ns < curEnd && !utf8.RuneStart(text[ns]) {
		ns++
	}
	// Prefer starting right after whitespace; scripts written without
	// spaces fall back to the rune-aligned position.
	ws := ns
	for ws < curEnd && !isSpaceByte(text[ws-1]) {
		ws++
	}
	if ws < curEnd {
		ns = ws
	}
	if ns <= curStart || ns >= curEnd {
		return curEnd
	}
	return ns
}

func emit(chunks []core.Chunk, text string, s, e, base, pageNumber int, pageType core.PageType) []core.Chunk {
	for s < e && isSpaceByte(text[s]) {
		s++
	}
	for e > s && isSpaceByte(text[e-1]) {
		e--
	}
	if s == e {
		return chunks
	}
	return append(chunks, core.Chunk{
		Index:      len(chunks),
		Content:    text[s:e],
		PageNumber: pageNumber,
		PageType:   pageType,
		StartChar:  base + s,
		EndChar:    base + e,
	})
}
