package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimit limits request rate with a token bucket. If rps <= 0, the
// limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		if rps <= 0 {
			return next
		}
		if burst <= 0 {
			burst = 1
		}
		return &rateLimited{passthrough{next}, rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	passthrough
	rl *rate.Limiter
}

func (c *rateLimited) Generate(ctx context.Context, req Request) (Completion, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return Completion{}, err
	}
	return c.next.Generate(ctx, req)
}
