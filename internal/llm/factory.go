package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderFake   = "fake"
)

var defaultModels = map[string]string{
	ProviderGemini: "gemini-2.5-flash",
	ProviderOpenAI: "gpt-4o-mini",
	ProviderGroq:   "llama-3.3-70b-versatile",
}

// Options selects and configures a provider.
type Options struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	// FakeScript is the YAML script served by the fake provider.
	FakeScript string
}

// DefaultModel returns the model used when Options.Model is empty.
func DefaultModel(provider string) string {
	return defaultModels[strings.ToLower(provider)]
}

// New builds the bare provider client for opts. Middleware is applied by the
// caller.
func New(ctx context.Context, opts Options) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	model := opts.Model
	if model == "" {
		model = DefaultModel(provider)
	}
	switch provider {
	case ProviderGemini:
		temp := opts.Temperature
		return NewGeminiClient(ctx, opts.APIKey, model, &temp)
	case ProviderOpenAI:
		return NewOpenAIClient("OpenAI", opts.APIKey, opts.BaseURL, model, opts.Temperature), nil
	case ProviderGroq:
		base := opts.BaseURL
		if base == "" {
			base = GroqBaseURL
		}
		return NewOpenAIClient("Groq", opts.APIKey, base, model, opts.Temperature), nil
	case ProviderFake:
		if opts.FakeScript == "" {
			return NewFakeClient(), nil
		}
		b, err := os.ReadFile(opts.FakeScript)
		if err != nil {
			return nil, fmt.Errorf("llm: read fake script: %w", err)
		}
		return NewFakeClientFromYAML(b)
	}
	return nil, fmt.Errorf("llm: unknown provider %q", opts.Provider)
}
