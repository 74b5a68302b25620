package chat

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/totodo/allpassagent/core"
)

// EventType discriminates stream events.
type EventType string

const (
	// EventContent carries one answer fragment.
	EventContent EventType = "content"

	// EventFinal closes the stream, carrying sources and recommendations.
	// Every stream ends with exactly one final event.
	EventFinal EventType = "final"
)

// Source is a citation attached to the final event.
type Source struct {
	Filename string  `json:"filename"`
	Page     int     `json:"page"`
	PageType string  `json:"pageType"`
	Snippet  string  `json:"snippet"`
	Score    float32 `json:"score"`
}

// Event is one server-sent event of a chat response stream.
type Event struct {
	Type            EventType                  `json:"type"`
	Content         string                     `json:"content,omitempty"`
	Sources         []Source                   `json:"sources"`
	Recommendations []core.RecommendedQuestion `json:"recommendations"`

	// HasRelevantContext reports whether the answer was grounded in
	// retrieved sources. Only meaningful on the final event.
	HasRelevantContext bool `json:"hasRelevantContext"`
}

// contentPayload and finalPayload are the wire shapes per event type.
type contentPayload struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
}

type finalPayload struct {
	Type               EventType                  `json:"type"`
	Sources            []Source                   `json:"sources"`
	Recommendations    []core.RecommendedQuestion `json:"recommendations"`
	HasRelevantContext bool                       `json:"hasRelevantContext"`
}

// MarshalJSON emits only the keys that belong to the event's type. A final
// event always carries sources, recommendations and the grounding flag,
// serializing empty sets as empty arrays rather than omitting the keys.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Type != EventFinal {
		return json.Marshal(contentPayload{Type: e.Type, Content: e.Content})
	}

	final := finalPayload{
		Type:               e.Type,
		Sources:            e.Sources,
		Recommendations:    e.Recommendations,
		HasRelevantContext: e.HasRelevantContext,
	}
	if final.Sources == nil {
		final.Sources = []Source{}
	}
	if final.Recommendations == nil {
		final.Recommendations = []core.RecommendedQuestion{}
	}
	return json.Marshal(final)
}

// WriteEvent writes one event in SSE wire format: a data line with the JSON
// payload followed by a blank line.
func WriteEvent(w io.Writer, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

// ParseEvents returns a pull iterator over the SSE events in r. Consumers
// range over it and stop whenever they have seen enough; the second value
// carries decode and read errors.
//
// Lines other than data lines (comments, event names, retry hints) are
// ignored, as is a trailing unterminated event.
func ParseEvents(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var data strings.Builder
		for scanner.Scan() {
			line := scanner.Text()
			if after, ok := strings.CutPrefix(line, "data:"); ok {
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(strings.TrimPrefix(after, " "))
				continue
			}
			if line != "" || data.Len() == 0 {
				continue
			}

			var event Event
			err := json.Unmarshal([]byte(data.String()), &event)
			data.Reset()
			if !yield(event, err) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Event{}, err)
		}
	}
}
