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
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/totodo/allpassagent/ai"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/recommend"
	"github.com/totodo/allpassagent/retrieval"
)

// snippetLen bounds the citation snippet attached to the final event.
const snippetLen = 200

// Orchestrator answers one user message as a stream of events: retrieved
// sources shape the system prompt, the model's tokens become content events,
// and a single final event closes the stream with citations and follow-up
// recommendations.
type Orchestrator struct {
	retriever   *retrieval.Engine
	recommender *recommend.Engine
	model       ai.ChatModel
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator over the given engines and model.
func NewOrchestrator(retriever *retrieval.Engine, recommender *recommend.Engine, model ai.ChatModel, opts ...Option) (*Orchestrator, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if recommender == nil {
		return nil, ErrRecommenderRequired
	}
	if model == nil {
		return nil, ErrChatModelRequired
	}

	o := &Orchestrator{
		retriever:   retriever,
		recommender: recommender,
		model:       model,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "chat")
	return o, nil
}

// Respond answers the conversation's latest message, calling emit for every
// event in order. The stream always ends with exactly one final event, even
// when retrieval or the chat model fails; the only errors returned are an
// empty message and failures of emit itself, which abort the stream.
func (o *Orchestrator) Respond(ctx context.Context, convo core.ConversationContext, emit func(Event) error) error {
	if strings.TrimSpace(convo.Message) == "" {
		return ErrEmptyMessage
	}

	sources, err := o.retriever.Retrieve(ctx, convo)
	if err != nil {
		// Answer without citations rather than fail the conversation.
		o.logger.Warn("retrieval failed, answering without sources", "error", err)
		sources = nil
	}

	turns := make([]core.Turn, 0, len(convo.History)+1)
	turns = append(turns, convo.History...)
	turns = append(turns, core.Turn{Role: core.RoleUser, Content: convo.Message})

	var emitErr error
	answer, chatErr := o.model.StreamChat(ctx, buildSystemPrompt(sources), turns, func(token string) error {
		if err := emit(Event{Type: EventContent, Content: token}); err != nil {
			emitErr = err
			return err
		}
		return nil
	})
	if emitErr != nil {
		// The client is gone; there is nobody left to send a final event to.
		return emitErr
	}
	if chatErr != nil {
		o.logger.Error("chat model failed", "error", chatErr)
		if err := emit(Event{Type: EventContent, Content: apologyMessage}); err != nil {
			return err
		}
		return emit(Event{Type: EventFinal})
	}
	o.logger.Debug("answer generated",
		"answerLen", len(answer), "sources", len(sources))

	recs := o.recommender.Recommend(ctx, convo, sources)

	return emit(Event{
		Type:               EventFinal,
		Sources:            toSources(sources),
		Recommendations:    recs,
		HasRelevantContext: len(sources) > 0,
	})
}

// errStopIteration signals that the Events consumer broke out of the loop.
var errStopIteration = errors.New("stop iteration")

// Events returns the response stream as a pull iterator. The consumer can
// stop early by breaking out of the range loop; errors from the underlying
// stream are yielded as the second value.
func (o *Orchestrator) Events(ctx context.Context, convo core.ConversationContext) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		err := o.Respond(ctx, convo, func(event Event) error {
			if !yield(event, nil) {
				return errStopIteration
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield(Event{}, err)
		}
	}
}

// RespondSSE runs Respond writing each event in SSE wire format, flushing
// after every event when w supports it.
func (o *Orchestrator) RespondSSE(ctx context.Context, convo core.ConversationContext, w io.Writer, flush func()) error {
	return o.Respond(ctx, convo, func(event Event) error {
		if err := WriteEvent(w, event); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
		if flush != nil {
			flush()
		}
		return nil
	})
}

func toSources(results []core.RerankResult) []Source {
	if len(results) == 0 {
		return nil
	}
	sources := make([]Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, Source{
			Filename: r.Match.Filename,
			Page:     r.Match.Page,
			PageType: string(r.Match.PageType),
			Snippet:  truncateRunes(r.Match.Content, snippetLen),
			Score:    r.Score,
		})
	}
	return sources
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
