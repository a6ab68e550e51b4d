package mock

import (
	"context"

	"github.com/poiesic/recall/ai"
)

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type MockCompleter struct {
	// Response is returned by Complete and Stream when no custom
	// function is set. If empty, a default canned answer is used.
	Response string

	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, messages []ai.Message, opts ...ai.CompleteOption) (string, error)

	// StreamFunc is called by Stream if set.
	StreamFunc func(ctx context.Context, messages []ai.Message, fn ai.StreamFunc, opts ...ai.CompleteOption) (string, error)

	callCount int
}

// NewMockCompleter creates a mock completer with default canned behavior.
// Note: Returns concrete type to allow test assertions via GetMockCompleter().
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete returns the configured response, or a default canned answer.
func (m *MockCompleter) Complete(ctx context.Context, messages []ai.Message, opts ...ai.CompleteOption) (string, error) {
	m.callCount++

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages, opts...)
	}

	return m.response(messages), nil
}

// Stream writes the configured response through fn in a single chunk,
// then returns it.
func (m *MockCompleter) Stream(ctx context.Context, messages []ai.Message, fn ai.StreamFunc, opts ...ai.CompleteOption) (string, error) {
	m.callCount++

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, messages, fn, opts...)
	}

	response := m.response(messages)
	if fn != nil {
		if err := fn(ctx, []byte(response)); err != nil {
			return "", err
		}
	}
	return response, nil
}

// response resolves the default answer for the given messages.
func (m *MockCompleter) response(messages []ai.Message) string {
	if m.Response != "" {
		return m.Response
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleUser {
			return "mock answer to: " + messages[i].Content
		}
	}
	return "mock answer"
}

// CallCount returns the number of times any method was called.
func (m *MockCompleter) CallCount() int {
	return m.callCount
}

// Reset clears the call count, response, and custom functions.
func (m *MockCompleter) Reset() {
	m.callCount = 0
	m.Response = ""
	m.CompleteFunc = nil
	m.StreamFunc = nil
}
