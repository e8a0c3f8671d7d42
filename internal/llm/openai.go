package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// GroqBaseURL is the OpenAI-compatible endpoint of Groq.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIClient calls an OpenAI-compatible Chat Completions API. With
// GroqBaseURL it talks to Groq.
type OpenAIClient struct {
	client      *openai.Client
	provider    string
	model       string
	temperature float32
}

// NewOpenAIClient creates a client for provider ("OpenAI", "Groq", ...).
// An empty baseURL uses the OpenAI default.
func NewOpenAIClient(provider, apiKey, baseURL, model string, temperature float32) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		provider:    provider,
		model:       model,
		temperature: temperature,
	}
}

func (o *OpenAIClient) Name() string                { return o.provider + ":" + o.model }
func (o *OpenAIClient) Close() error                { return nil }
func (o *OpenAIClient) CountTokens(text string) int { return CountTokens(text) }

func (o *OpenAIClient) Generate(ctx context.Context, req Request) (Completion, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: o.temperature,
	})
	if err != nil {
		return Completion{}, o.classify(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Completion{}, ErrEmptyResponse
	}
	return Completion{Text: resp.Choices[0].Message.Content, Tokens: resp.Usage.TotalTokens}, nil
}

func (o *OpenAIClient) classify(err error) error {
	wrapped := fmt.Errorf("%s: %w", strings.ToLower(o.provider), err)
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if permanentStatus(apiErr.HTTPStatusCode) || apiErr.Code == "context_length_exceeded" {
			return NewPermanentError(wrapped)
		}
		return wrapped
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && permanentStatus(reqErr.HTTPStatusCode) {
		return NewPermanentError(wrapped)
	}
	return wrapped
}
