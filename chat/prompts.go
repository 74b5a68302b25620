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


package chat

import (
	"fmt"
	"strings"

	"github.com/totodo/allpassagent/core"
)

const basePrompt = `You are a helpful assistant answering questions about the user's uploaded documents.
Ground your answer in the provided source excerpts and cite them by filename.
If the sources do not cover the question, say so instead of guessing.`

const noSourcesPrompt = `You are a helpful assistant answering questions about the user's uploaded documents.
No relevant source excerpts were found for this question. Say that the uploaded
documents do not appear to cover it, and answer from general knowledge only if
the user clearly wants that.`

// apologyMessage is streamed when the chat model fails mid-conversation.
const apologyMessage = "I'm sorry, I ran into a problem while generating the answer. Please try again."

// buildSystemPrompt assembles the system prompt with the retrieved source
// excerpts appended as numbered citations.
func buildSystemPrompt(sources []core.RerankResult) string {
	if len(sources) == 0 {
		return noSourcesPrompt
	}

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nSources:\n")
	for i, source := range sources {
		match := source.Match
		fmt.Fprintf(&b, "[%d] %s", i+1, match.Filename)
		if match.Page > 0 {
			fmt.Fprintf(&b, " (%s %d)", match.PageType, match.Page)
		}
		b.WriteString(":\n")
		b.WriteString(match.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
