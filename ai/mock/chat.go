package mock

import (
	"context"
	"strings"

	"github.com/totodo/allpassagent/core"
)

// MockChatModel is a test double for ai.ChatModel.
// It allows custom behavior injection via a function field.
type MockChatModel struct {
	// StreamChatFunc is called by StreamChat if set.
	// If nil, uses default deterministic behavior.
	StreamChatFunc func(ctx context.Context, system string, turns []core.Turn, onToken func(string) error) (string, error)

	// Answer is streamed word by word by the default behavior.
	Answer string

	callCount int
}

// NewMockChatModel creates a mock chat model that streams a fixed answer.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{Answer: "This is a mock answer."}
}

// StreamChat streams the configured answer word by word through onToken.
func (m *MockChatModel) StreamChat(ctx context.Context, system string, turns []core.Turn, onToken func(string) error) (string, error) {
	m.callCount++

	if m.StreamChatFunc != nil {
		return m.StreamChatFunc(ctx, system, turns, onToken)
	}

	if onToken != nil {
		words := strings.SplitAfter(m.Answer, " ")
		for _, word := range words {
			if err := onToken(word); err != nil {
				return "", err
			}
		}
	}
	return m.Answer, nil
}

// CallCount returns the number of times StreamChat was called.
func (m *MockChatModel) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockChatModel) Reset() {
	m.callCount = 0
	m.StreamChatFunc = nil
}
