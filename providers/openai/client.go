// Package openai wraps the generation model's API behind the single completion
// call the orchestrator needs.
package openai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/xerrors"
)

// Client is the generation-model facade
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a new completion client. An empty model falls back to
// gpt-4o-mini.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

// Complete issues one chat completion with JSON output forced on
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", xerrors.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", xerrors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
