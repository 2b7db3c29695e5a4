// Package insights turns expense history into AI spending advice and parses
// spoken expense phrases, both through an LLM chat completion.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrDisabled is returned by Disabled when no LLM is configured.
var ErrDisabled = errors.New("AI completion is not configured")

// CompletionRequest is a single system + user prompt exchange that must be
// answered with a JSON object.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completer returns the raw text of a model reply.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Disabled always fails, letting callers fall back to static answers.
type Disabled struct{}

func (Disabled) Complete(context.Context, CompletionRequest) (string, error) {
	return "", ErrDisabled
}

// OpenAICompleter calls an OpenAI compatible chat completions endpoint.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter builds a client for model. baseURL is optional.
func NewOpenAICompleter(apiKey, model, baseURL string) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAICompleter{client: openai.NewClientWithConfig(cfg), model: model}
}

// Complete requests a JSON object reply.
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		MaxTokens:      req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
