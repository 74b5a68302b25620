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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/totodo/allpassagent/core"
)

func TestParse_ShortPlainText(t *testing.T) {
	doc, err := Parse([]byte("  hello world\r\n"), core.MediaText)
	require.NoError(t, err)
	assert.Equal(t, "hello world", doc.Content)
	assert.Nil(t, doc.Pages, "short plain text stays unpaged")
	assert.Zero(t, doc.PageCount())
}

func TestParse_LongPlainTextGetsSyntheticPages(t *testing.T) {
	line := strings.Repeat("lorem ipsum ", 8) // ~96 bytes
	text := strings.TrimSpace(strings.Repeat(line+"\n", 60))

	doc, err := Parse([]byte(text), core.MediaText)
	require.NoError(t, err)
	require.Greater(t, doc.PageCount(), 1)

	for i, page := range doc.Pages {
		assert.Equal(t, i+1, page.Number)
		assert.Equal(t, core.PageTypePage, page.Type)
		assert.Equal(t, doc.Content[page.StartChar:page.StartChar+len(page.Content)], page.Content)
	}
}

func TestParse_Markdown(t *testing.T) {
	src := "# Title\n\nSome [link](https://example.com) and `code` here.\n\n```go\nfunc main() {}\n```\n"

	doc, err := Parse([]byte(src), core.MediaMarkdown)
	require.NoError(t, err)

	assert.NotContains(t, doc.Content, "#")
	assert.NotContains(t, doc.Content, "```")
	assert.NotContains(t, doc.Content, "https://example.com")
	assert.Contains(t, doc.Content, "Title")
	assert.Contains(t, doc.Content, "Some link and code here.")
	assert.Contains(t, doc.Content, "func main() {}", "code block contents survive")
}

func TestParse_PDFPages(t *testing.T) {
	src := "First page text.\fSecond page text.\f\fFourth page text."

	doc, err := Parse([]byte(src), core.MediaPDF)
	require.NoError(t, err)
	require.Equal(t, 3, doc.PageCount())

	assert.Equal(t, 1, doc.Pages[0].Number)
	assert.Equal(t, 2, doc.Pages[1].Number)
	assert.Equal(t, 4, doc.Pages[2].Number, "blank pages keep their place in numbering")
	for _, page := range doc.Pages {
		assert.Equal(t, core.PageTypePage, page.Type)
		assert.Equal(t, doc.Content[page.StartChar:page.StartChar+len(page.Content)], page.Content)
	}
	assert.NotContains(t, doc.Content, "\f")
}

func TestParse_PPTXSlides(t *testing.T) {
	src := "Slide one.\fSlide two."

	doc, err := Parse([]byte(src), core.MediaPPTX)
	require.NoError(t, err)
	require.Equal(t, 2, doc.PageCount())
	assert.Equal(t, core.PageTypeSlide, doc.Pages[0].Type)
	assert.Equal(t, "Slide one.", doc.Pages[0].Content)
	assert.Equal(t, "Slide two.", doc.Pages[1].Content)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse([]byte("   \n\t  "), core.MediaText)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = Parse(nil, core.MediaPDF)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestParse_UnsupportedKind(t *testing.T) {
	_, err := Parse([]byte("content"), core.MediaKind("xlsx"))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}

func TestParseAndChunk_EndToEnd(t *testing.T) {
	src := "Slide one has a sentence. It has another sentence.\fSlide two is short."

	doc, err := Parse([]byte(src), core.MediaPPTX)
	require.NoError(t, err)

	chunks := ChunkText(doc.Content, DefaultChunkSize, DefaultOverlap, doc.Pages)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 2, chunks[1].PageNumber)
	assert.Equal(t, core.PageTypeSlide, chunks[0].PageType)
	for _, chunk := range chunks {
		assert.Equal(t, doc.Content[chunk.StartChar:chunk.EndChar], chunk.Content)
	}
}
