package llm

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, retries, logging, hooks, etc.).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// passthrough forwards everything but Generate to the wrapped client.
type passthrough struct{ next Client }

func (p passthrough) Name() string                { return p.next.Name() }
func (p passthrough) Close() error                { return p.next.Close() }
func (p passthrough) CountTokens(text string) int { return p.next.CountTokens(text) }

// -------- Timeout --------

// WithTimeout bounds every call. d <= 0 disables it.
func WithTimeout(d time.Duration) Middleware {
	return func(next Client) Client {
		if d <= 0 {
			return next
		}
		return &timeoutClient{passthrough{next}, d}
	}
}

type timeoutClient struct {
	passthrough
	d time.Duration
}

func (c *timeoutClient) Generate(ctx context.Context, req Request) (Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	out, err := c.next.Generate(ctx, req)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return Completion{}, fmt.Errorf("llm: %s timed out after %s: %w", PhaseFrom(ctx), c.d, err)
	}
	return out, err
}

// -------- Logging & Hooks --------

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Client) Client {
		return &logging{passthrough{next}, logger}
	}
}

type logging struct {
	passthrough
	log *log.Logger
}

func (l *logging) Generate(ctx context.Context, req Request) (Completion, error) {
	phase := PhaseFrom(ctx)
	l.log.Printf("LLM request (%s): %d bytes via %s", phase, len(req.System)+len(req.User), l.next.Name())
	start := time.Now()
	out, err := l.next.Generate(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", phase, err)
		return out, err
	}
	l.log.Printf("LLM response (%s): %d bytes, %d tokens in %s", phase, len(out.Text), out.Tokens, time.Since(start).Round(time.Millisecond))
	return out, nil
}

// WithHooks calls HookFrom(ctx).Before/After around Generate.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next Client) Client {
		return &hooked{passthrough{next}}
	}
}

type hooked struct{ passthrough }

func (h *hooked) Generate(ctx context.Context, req Request) (Completion, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, PhaseFrom(ctx), req)
	}
	out, err := h.next.Generate(ctx, req)
	if hook != nil {
		hook.After(ctx, PhaseFrom(ctx), out, err)
	}
	return out, err
}
