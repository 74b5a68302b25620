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
	"fmt"
	"regexp"
	"strings"

	"github.com/totodo/allpassagent/core"
)

const (
	// plainPageSize is the synthetic page target for plain text. Shorter
	// documents stay unpaged.
	plainPageSize = 1000

	// richPageSize is the paragraph grouping target for markdown and docx.
	richPageSize = 2000
)

// Page is one page of extracted text. Number is 1-based; for form-feed
// sources it is the native page or slide number, otherwise a synthetic
// ordinal. StartChar is the page's offset within ParsedDocument.Content.
type Page struct {
	Number    int
	Type      core.PageType
	Content   string
	StartChar int
}

// ParsedDocument is the extraction result handed to the chunker.
// Pages is nil when the source has no usable page structure, in which case
// chunks carry no page number.
type ParsedDocument struct {
	Content string
	Pages   []Page
}

// PageCount returns the number of extracted pages.
func (d *ParsedDocument) PageCount() int {
	return len(d.Pages)
}

// Parse extracts text and page structure from raw document bytes.
//
// Binary formats (pdf, pptx, docx) are expected to arrive as pre-extracted
// text; for pdf and pptx, pages are separated by form feeds. Plain text and
// rich text are cut into synthetic pages once they outgrow the page target.
func Parse(data []byte, kind core.MediaKind) (*ParsedDocument, error) {
	text := strings.TrimSpace(normalize(string(data)))
	if text == "" {
		return nil, ErrEmptyDocument
	}

	switch kind {
	case core.MediaText:
		return &ParsedDocument{Content: text, Pages: paginate(text, plainPageSize)}, nil
	case core.MediaMarkdown:
		stripped := strings.TrimSpace(stripMarkdown(text))
		if stripped == "" {
			return nil, ErrEmptyDocument
		}
		return &ParsedDocument{Content: stripped, Pages: paginate(stripped, richPageSize)}, nil
	case core.MediaDocx:
		return &ParsedDocument{Content: text, Pages: paginate(text, richPageSize)}, nil
	case core.MediaPDF:
		return parsePaginated(text, core.PageTypePage)
	case core.MediaPPTX:
		return parsePaginated(text, core.PageTypeSlide)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMedia, kind)
	}
}

// normalize converts line endings to bare LF.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

var (
	imageRe   = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRe    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	fenceRe   = regexp.MustCompile("(?m)^```[^\n]*$")
)

// stripMarkdown removes markup while keeping the readable text, including
// the contents of code blocks.
func stripMarkdown(s string) string {
	s = imageRe.ReplaceAllString(s, "$1")
	s = linkRe.ReplaceAllString(s, "$1")
	s = headingRe.ReplaceAllString(s, "")
	s = fenceRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}

// paginate cuts text into synthetic pages at line boundaries, closing a page
// once it reaches the target length. Text that fits in a single page stays
// unpaged.
func paginate(text string, target int) []Page {
	if len(text) <= target {
		return nil
	}

	var pages []Page
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		lineEnd := i + 1
		if lineEnd-start >= target {
			pages = appendPage(pages, text, start, lineEnd, len(pages)+1, core.PageTypePage)
			start = lineEnd
		}
	}
	if start < len(text) {
		pages = appendPage(pages, text, start, len(text), len(pages)+1, core.PageTypePage)
	}
	if len(pages) < 2 {
		// A single long line produces one page, which carries no more
		// structure than the unpaged document.
		return nil
	}
	return pages
}

// parsePaginated splits form-feed separated text into native pages. Blank
// pages keep their place in the numbering but produce no Page entry.
func parsePaginated(text string, pageType core.PageType) (*ParsedDocument, error) {
	content := strings.ReplaceAll(text, "\f", "\n")

	var pages []Page
	num := 0
	start := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != '\f' {
			continue
		}
		num++
		pages = appendPage(pages, content, start, i, num, pageType)
		start = i + 1
	}
	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}
	return &ParsedDocument{Content: content, Pages: pages}, nil
}

func appendPage(pages []Page, text string, s, e, number int, pageType core.PageType) []Page {
	for s < e && isSpaceByte(text[s]) {
		s++
	}
	for e > s && isSpaceByte(text[e-1]) {
		e--
	}
	if s == e {
		return pages
	}
	return append(pages, Page{
		Number:    number,
		Type:      pageType,
		Content:   text[s:e],
		StartChar: s,
	})
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\f'
}
