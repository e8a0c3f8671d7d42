package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli         *genai.Client
	model       string
	temperature *float32
}

func NewGeminiClient(ctx context.Context, apiKey, model string, temperature *float32) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model, temperature: temperature}, nil
}

func (g *GeminiClient) Name() string                { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error                { return nil }
func (g *GeminiClient) CountTokens(text string) int { return CountTokens(text) }

func (g *GeminiClient) Generate(ctx context.Context, req Request) (Completion, error) {
	cfg := &genai.GenerateContentConfig{Temperature: g.temperature}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.User}}}},
		cfg,
	)
	if err != nil {
		return Completion{}, classifyGeminiError(err)
	}
	text := resp.Text()
	if text == "" {
		return Completion{}, ErrEmptyResponse
	}
	out := Completion{Text: text}
	if resp.UsageMetadata != nil {
		out.Tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// classifyGeminiError marks client-side rejections (bad key, bad request,
// unknown model) as permanent; rate limits and server errors stay retryable.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		err = fmt.Errorf("gemini: %w", err)
		if permanentStatus(apiErr.Code) {
			return NewPermanentError(err)
		}
	}
	return err
}

func permanentStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
