package llm

import (
	"context"
	"sync"
)

// Meter accumulates the calls and tokens of one run. A Meter travels in the
// context so that concurrent runs never share counters.
type Meter struct {
	mu     sync.Mutex
	calls  int
	tokens int
	errors int
	phases map[string]int
}

func NewMeter() *Meter {
	return &Meter{phases: map[string]int{}}
}

// Record adds one call.
func (m *Meter) Record(phase string, tokens int, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.tokens += tokens
	if err != nil {
		m.errors++
	}
	m.phases[phase]++
}

// Usage is a point-in-time copy of a Meter.
type Usage struct {
	Calls  int            `json:"calls"`
	Tokens int            `json:"tokens"`
	Errors int            `json:"errors"`
	Phases map[string]int `json:"phases,omitempty"`
}

func (m *Meter) Snapshot() Usage {
	if m == nil {
		return Usage{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	phases := make(map[string]int, len(m.phases))
	for k, v := range m.phases {
		phases[k] = v
	}
	return Usage{Calls: m.calls, Tokens: m.tokens, Errors: m.errors, Phases: phases}
}

type ctxKeyMeter struct{}

func WithMeter(ctx context.Context, m *Meter) context.Context {
	return context.WithValue(ctx, ctxKeyMeter{}, m)
}

// MeterFrom returns the meter stored in the context, or nil.
func MeterFrom(ctx context.Context) *Meter {
	if m, ok := ctx.Value(ctxKeyMeter{}).(*Meter); ok {
		return m
	}
	return nil
}

// WithUsage records every call into MeterFrom(ctx). Calls made without a
// meter in the context are not counted.
func WithUsage() Middleware {
	return func(next Client) Client {
		return &usageClient{passthrough{next}}
	}
}

type usageClient struct{ passthrough }

func (u *usageClient) Generate(ctx context.Context, req Request) (Completion, error) {
	out, err := u.next.Generate(ctx, req)
	if m := MeterFrom(ctx); m != nil {
		tokens := 0
		if err == nil {
			tokens = estimateTokens(u.next, req, out)
		}
		m.Record(PhaseFrom(ctx), tokens, err)
	}
	return out, err
}
