package llm

import "context"

type ctxKeyPhase struct{}
type ctxKeyHook struct{}

// WithPhase tags calls made with ctx, e.g. "coder" or "debug_2_source".
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyPhase{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}

// Hook observes calls that pass through the WithHooks middleware.
type Hook interface {
	Before(ctx context.Context, phase string, req Request)
	After(ctx context.Context, phase string, out Completion, err error)
}

// WithHook attaches a Hook to the context.
func WithHook(ctx context.Context, hook Hook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) Hook {
	if v := ctx.Value(ctxKeyHook{}); v != nil {
		if h, ok := v.(Hook); ok {
			return h
		}
	}
	return nil
}
