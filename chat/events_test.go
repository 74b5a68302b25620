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
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/totodo/allpassagent/core"
)

func TestWriteEventWireFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEvent(&buf, Event{Type: EventContent, Content: "hello"}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "data: "), "got %q", out)
	assert.True(t, strings.HasSuffix(out, "\n\n"), "got %q", out)
}

// decodePayload unmarshals the single SSE frame in buf into a generic map.
func decodePayload(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	payload := strings.TrimSuffix(strings.TrimPrefix(buf.String(), "data: "), "\n\n")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	return decoded
}

func TestWriteEventPayloadShapes(t *testing.T) {
	t.Run("ungrounded final still carries its keys", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteEvent(&buf, Event{Type: EventFinal}))

		decoded := decodePayload(t, &buf)
		assert.Equal(t, []any{}, decoded["sources"])
		assert.Equal(t, []any{}, decoded["recommendations"])
		assert.Equal(t, false, decoded["hasRelevantContext"])
	})

	t.Run("content carries only type and content", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteEvent(&buf, Event{Type: EventContent, Content: "hi"}))

		decoded := decodePayload(t, &buf)
		assert.Equal(t, map[string]any{"type": "content", "content": "hi"}, decoded)
	})
}

func TestWriteParseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	written := []Event{
		{Type: EventContent, Content: "chunking "},
		{Type: EventContent, Content: "splits text"},
		{
			Type:    EventFinal,
			Sources: []Source{{Filename: "a.md", Page: 2, PageType: "page", Snippet: "s", Score: 0.9}},
			Recommendations: []core.RecommendedQuestion{
				{Id: "q-1", Question: "What next?", Category: core.CategoryDeepDive, Relevance: 0.8},
			},
		},
	}
	for _, event := range written {
		require.NoError(t, WriteEvent(&buf, event))
	}

	var parsed []Event
	for event, err := range ParseEvents(&buf) {
		require.NoError(t, err)
		parsed = append(parsed, event)
	}
	assert.Equal(t, written, parsed)
}

func TestParseEventsIgnoresNonDataLines(t *testing.T) {
	stream := ": keep-alive comment\n" +
		"event: message\n" +
		"retry: 3000\n" +
		"data: {\"type\":\"content\",\"content\":\"hi\"}\n" +
		"\n"

	var parsed []Event
	for event, err := range ParseEvents(strings.NewReader(stream)) {
		require.NoError(t, err)
		parsed = append(parsed, event)
	}
	require.Len(t, parsed, 1)
	assert.Equal(t, "hi", parsed[0].Content)
}

func TestParseEventsStopsEarly(t *testing.T) {
	var buf bytes.Buffer
	for range 10 {
		require.NoError(t, WriteEvent(&buf, Event{Type: EventContent, Content: "x"}))
	}

	seen := 0
	for range ParseEvents(&buf) {
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
}

func TestParseEventsDropsTrailingPartial(t *testing.T) {
	stream := "data: {\"type\":\"content\",\"content\":\"done\"}\n\n" +
		"data: {\"type\":\"content\",\"cont" // truncated mid-event

	var parsed []Event
	for event, err := range ParseEvents(strings.NewReader(stream)) {
		require.NoError(t, err)
		parsed = append(parsed, event)
	}
	require.Len(t, parsed, 1)
	assert.Equal(t, "done", parsed[0].Content)
}
