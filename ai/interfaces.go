package ai

import (
	"context"
	"encoding/json"
)

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in
	// a batch. The returned slice contains embeddings in the same order
	// as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// MessageRole identifies the author of a chat message sent to the model.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single entry in a chat completion request.
type Message struct {
	Role    MessageRole
	Content string
}

// StreamFunc receives incremental completion tokens in arrival order.
// Returning an error aborts the stream.
type StreamFunc func(ctx context.Context, token []byte) error

// ToolSpec describes a single function tool offered to the model.
// Parameters is a JSON-schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Chatter generates chat completions. Implementations must be
// thread-safe for concurrent use.
type Chatter interface {
	// StreamCompletion requests a streamed completion, forwarding each
	// incremental token to onToken as it arrives, and returns the full
	// concatenated answer once the stream is exhausted.
	StreamCompletion(ctx context.Context, messages []Message, onToken StreamFunc) (string, error)

	// CallTool offers the model a single function tool and returns the
	// raw JSON arguments of the call, or nil if the model did not invoke
	// the tool.
	CallTool(ctx context.Context, messages []Message, tool ToolSpec) (json.RawMessage, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. Returned services are safe for concurrent use.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Chatter returns the chat completion service.
	Chatter() Chatter

	// Close releases resources held by the provider and its services.
	Close() error
}
