package openai

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/poiesic/datachat/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Chatter implements ai.Chatter using OpenAI-compatible chat APIs.
type Chatter struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// newChatter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newChatter(config *ai.Config) (*Chatter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Chatter{
		client:      client,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-chatter"),
	}, nil
}

// NewChatter creates a new chat completion service using the provided
// configuration.
//
// Returns ai.Chatter interface to enforce abstraction.
func NewChatter(config *ai.Config) (ai.Chatter, error) {
	return newChatter(config)
}

// StreamCompletion requests a streamed completion and forwards each token
// to onToken in provider-emission order. The full concatenated answer is
// returned after the stream is exhausted.
func (c *Chatter) StreamCompletion(ctx context.Context, messages []ai.Message, onToken ai.StreamFunc) (string, error) {
	content := toContent(messages)

	response, err := c.client.GenerateContent(ctx, content,
		llms.WithTemperature(c.temperature),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return onToken(ctx, chunk)
		}),
	)
	if err != nil {
		c.logger.Error("streamed completion failed", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		c.logger.Debug("no choices returned from model")
		return "", nil
	}
	return response.Choices[0].Content, nil
}

// CallTool offers the model a single function tool at temperature 0 and
// returns the raw JSON arguments of the first matching call, or nil if
// the model answered without invoking the tool.
func (c *Chatter) CallTool(ctx context.Context, messages []ai.Message, tool ai.ToolSpec) (json.RawMessage, error) {
	content := toContent(messages)

	response, err := c.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.0),
		llms.WithTools([]llms.Tool{
			{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  tool.Parameters,
				},
			},
		}),
	)
	if err != nil {
		c.logger.Error("tool call failed", "tool", tool.Name, "err", err)
		return nil, err
	}

	if len(response.Choices) < 1 {
		return nil, nil
	}
	for _, call := range response.Choices[0].ToolCalls {
		if call.FunctionCall == nil || call.FunctionCall.Name != tool.Name {
			continue
		}
		return json.RawMessage(call.FunctionCall.Arguments), nil
	}
	return nil, nil
}

// toContent maps ai messages to langchaingo message content.
func toContent(messages []ai.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, message := range messages {
		content = append(content, llms.MessageContent{
			Role:  toRole(message.Role),
			Parts: []llms.ContentPart{llms.TextPart(message.Content)},
		})
	}
	return content
}

func toRole(role ai.MessageRole) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
