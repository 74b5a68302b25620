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


package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/totodo/allpassagent/ai"
	"github.com/totodo/allpassagent/core"
)

// Chat implements ai.ChatModel using OpenAI-compatible chat APIs.
type Chat struct {
	client llms.Model
	logger *slog.Logger
}

// newChat is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newChat(config *ai.Config) (*Chat, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Chat{
		client: client,
		logger: slog.Default().With("component", "openai-chat"),
	}, nil
}

// NewChat creates a new chat model using the provided configuration.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChat(config *ai.Config) (ai.ChatModel, error) {
	return newChat(config)
}

// StreamChat generates an answer to the conversation, streaming content
// fragments through onToken as the model produces them.
func (c *Chat) StreamChat(ctx context.Context, system string, turns []core.Turn, onToken func(token string) error) (string, error) {
	content := make([]llms.MessageContent, 0, len(turns)+1)
	if system != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		})
	}
	for _, turn := range turns {
		role := llms.ChatMessageTypeHuman
		if turn.Role == core.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(turn.Content)},
		})
	}

	var answer strings.Builder
	response, err := c.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.7),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			answer.Write(chunk)
			if onToken != nil {
				return onToken(string(chunk))
			}
			return nil
		}),
	)
	if err != nil {
		c.logger.Error("failed to generate answer", "err", err)
		return "", err
	}

	// Some OpenAI-compatible servers ignore the streaming option and return
	// the whole answer in one choice.
	if answer.Len() == 0 && len(response.Choices) > 0 {
		full := response.Choices[0].Content
		if onToken != nil && full != "" {
			if err := onToken(full); err != nil {
				return "", err
			}
		}
		return full, nil
	}

	return answer.String(), nil
}
