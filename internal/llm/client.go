// Package llm is the text-generation client used by every role: a small
// Client interface, provider implementations and a middleware chain.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Request is one prompt. System carries the role instructions, User the
// task material.
type Request struct {
	System string
	User   string
}

// Completion is the generated text and the tokens the call consumed.
// Cached completions were served without calling the provider.
type Completion struct {
	Text   string
	Tokens int
	Cached bool
}

// Client generates text for a request.
type Client interface {
	Name() string
	Close() error
	CountTokens(text string) int
	Generate(ctx context.Context, req Request) (Completion, error)
}

var ErrEmptyResponse = errors.New("llm: empty response from model")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// CountTokens provides a rough token count for text. It counts
// whitespace-delimited words and falls back to a character-based heuristic.
func CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	words := strings.Fields(text)
	if len(words) > 0 {
		return len(words)
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

func estimateTokens(cli Client, req Request, out Completion) int {
	if out.Cached {
		return 0
	}
	if out.Tokens > 0 {
		return out.Tokens
	}
	t := cli.CountTokens(req.System) + cli.CountTokens(req.User) + cli.CountTokens(out.Text)
	if t < 1 {
		t = 1
	}
	return t
}
