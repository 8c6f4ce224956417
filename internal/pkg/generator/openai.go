package generator

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel = "gpt-4o-mini"

	completionTemperature = 0.7
	completionMaxTokens   = 800
)

// OpenAICompleter requests JSON-object completions from an OpenAI compatible
// chat endpoint.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter returns nil when apiKey is empty so callers fall back to
// the placeholder generator.
func NewOpenAICompleter(apiKey, model, baseURL string) *OpenAICompleter {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return NewOpenAICompleterWithClient(openai.NewClientWithConfig(cfg), model)
}

func NewOpenAICompleterWithClient(client *openai.Client, model string) *OpenAICompleter {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &OpenAICompleter{client: client, model: model}
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// NewFromAPIKey builds a generator backed by OpenAI, or the offline
// placeholder generator when no key is configured.
func NewFromAPIKey(apiKey, model, baseURL string, opts ...Option) *Generator {
	if c := NewOpenAICompleter(apiKey, model, baseURL); c != nil {
		return New(c, opts...)
	}
	return New(nil, opts...)
}
