package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// WithCache memoizes successful completions keyed by model, system prompt and
// user prompt. size <= 0 disables it.
func WithCache(size int, ttl time.Duration) Middleware {
	return func(next Client) Client {
		if size <= 0 {
			return next
		}
		return &cached{passthrough{next}, expirable.NewLRU[string, Completion](size, nil, ttl)}
	}
}

type cached struct {
	passthrough
	lru *expirable.LRU[string, Completion]
}

func (c *cached) Generate(ctx context.Context, req Request) (Completion, error) {
	key := cacheKey(c.next.Name(), req)
	if out, ok := c.lru.Get(key); ok {
		out.Cached = true
		return out, nil
	}
	out, err := c.next.Generate(ctx, req)
	if err != nil {
		return out, err
	}
	c.lru.Add(key, out)
	return out, nil
}

func cacheKey(model string, req Request) string {
	h := sha256.New()
	for _, part := range []string{model, req.System, req.User} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
