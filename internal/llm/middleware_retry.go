package llm

import (
	"context"
	"time"
)

// Retry retries Generate up to maxAttempts with exponential backoff starting
// at baseDelay. Permanent errors and a canceled context stop it immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{passthrough: passthrough{next}, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	passthrough
	max  int
	base time.Duration
}

func (r *retrying) Generate(ctx context.Context, req Request) (Completion, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		if IsPermanent(err) {
			return Completion{}, err
		}
		last = err
		if i == r.max-1 {
			break
		}
		t := time.NewTimer(r.base * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			t.Stop()
			return Completion{}, ctx.Err()
		case <-t.C:
		}
	}
	return Completion{}, last
}
