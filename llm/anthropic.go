// Package llm provides the completion collaborator: one model call per
// GENERATE stage.
package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/becomeliminal/vox-go-sdk/core"
)

// messageCreator is the slice of the Anthropic client the completer needs.
type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicCompleter issues completions against the Anthropic Messages API.
type AnthropicCompleter struct {
	messages    messageCreator
	model       string
	maxTokens   int64
	temperature float64
}

// Option configures the completer.
type Option func(*AnthropicCompleter)

// WithMaxTokens sets the response token cap.
func WithMaxTokens(n int64) Option {
	return func(c *AnthropicCompleter) {
		c.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *AnthropicCompleter) {
		c.temperature = t
	}
}

// NewAnthropicCompleter creates a completer for the given model.
func NewAnthropicCompleter(client *anthropic.Client, model string, opts ...Option) *AnthropicCompleter {
	c := &AnthropicCompleter{
		messages:    &client.Messages,
		model:       model,
		maxTokens:   1024,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends the system instruction and recent messages and returns the
// response text. Exactly one API call per invocation.
func (c *AnthropicCompleter) Complete(ctx context.Context, system string, messages []core.Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: toParams(messages),
	}

	resp, err := c.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// toParams converts conversation messages for the Anthropic API. System
// messages are skipped; the system instruction travels separately.
func toParams(messages []core.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case core.RoleUser:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case core.RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return params
}
