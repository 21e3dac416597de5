package mock

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/poiesic/datachat/ai"
)

// MockChatter is a test double for ai.Chatter.
// It allows custom behavior injection via function fields.
type MockChatter struct {
	// StreamCompletionFunc is called by StreamCompletion if set.
	StreamCompletionFunc func(ctx context.Context, messages []ai.Message, onToken ai.StreamFunc) (string, error)

	// CallToolFunc is called by CallTool if set.
	CallToolFunc func(ctx context.Context, messages []ai.Message, tool ai.ToolSpec) (json.RawMessage, error)

	// Tokens are streamed one by one by the default StreamCompletion
	// behavior. If empty, a single canned token is streamed.
	Tokens []string

	// ToolArguments is returned by the default CallTool behavior.
	// Nil means the model did not call the tool.
	ToolArguments json.RawMessage

	mu       sync.Mutex
	requests [][]ai.Message
}

// NewMockChatter creates a mock chatter with default canned behavior.
func NewMockChatter() *MockChatter {
	return &MockChatter{}
}

// StreamCompletion streams the configured tokens in order and returns
// their concatenation.
func (m *MockChatter) StreamCompletion(ctx context.Context, messages []ai.Message, onToken ai.StreamFunc) (string, error) {
	m.record(messages)

	if m.StreamCompletionFunc != nil {
		return m.StreamCompletionFunc(ctx, messages, onToken)
	}

	tokens := m.Tokens
	if len(tokens) == 0 {
		tokens = []string{"mock answer"}
	}
	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := onToken(ctx, []byte(token)); err != nil {
			return "", err
		}
	}
	return strings.Join(tokens, ""), nil
}

// CallTool returns the configured tool arguments.
func (m *MockChatter) CallTool(ctx context.Context, messages []ai.Message, tool ai.ToolSpec) (json.RawMessage, error) {
	m.record(messages)

	if m.CallToolFunc != nil {
		return m.CallToolFunc(ctx, messages, tool)
	}
	return m.ToolArguments, nil
}

// Requests returns the message sequences of every call, in order.
func (m *MockChatter) Requests() [][]ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]ai.Message, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockChatter) record(messages []ai.Message) {
	m.mu.Lock()
	m.requests = append(m.requests, messages)
	m.mu.Unlock()
}
