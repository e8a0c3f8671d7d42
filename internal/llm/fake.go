package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrScriptExhausted = errors.New("llm: fake script has no reply left")

// FakeClient replays scripted replies for tests and offline runs. Replies
// queued for the call's phase (exact match, then longest prefix) are served
// before the default queue.
type FakeClient struct {
	mu       sync.Mutex
	byPhase  map[string][]fakeReply
	fallback []fakeReply
	calls    []FakeCall
}

type fakeReply struct {
	text string
	err  error
}

// FakeCall is one recorded Generate call.
type FakeCall struct {
	Phase   string
	Request Request
}

func NewFakeClient() *FakeClient {
	return &FakeClient{byPhase: map[string][]fakeReply{}}
}

// NewFakeClientFromYAML loads a script of the form
//
//	plan: ["a user story"]
//	generate.source: ["## filename\nmain.py\n..."]
//	"": ["default reply"]
func NewFakeClientFromYAML(data []byte) (*FakeClient, error) {
	var script map[string][]string
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("llm: fake script: %w", err)
	}
	f := NewFakeClient()
	for phase, replies := range script {
		f.Reply(phase, replies...)
	}
	return f, nil
}

// Reply queues texts for phase. An empty phase is the default queue.
func (f *FakeClient) Reply(phase string, texts ...string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range texts {
		f.push(phase, fakeReply{text: t})
	}
	return f
}

// Fail queues an error for phase.
func (f *FakeClient) Fail(phase string, err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.push(phase, fakeReply{err: err})
	return f
}

func (f *FakeClient) push(phase string, r fakeReply) {
	if phase == "" {
		f.fallback = append(f.fallback, r)
		return
	}
	f.byPhase[phase] = append(f.byPhase[phase], r)
}

// Calls returns the calls made so far.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

func (f *FakeClient) Name() string                { return "FakeLLM" }
func (f *FakeClient) Close() error                { return nil }
func (f *FakeClient) CountTokens(text string) int { return CountTokens(text) }

func (f *FakeClient) Generate(ctx context.Context, req Request) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}
	phase := PhaseFrom(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, FakeCall{Phase: phase, Request: req})

	r, ok := f.pop(phase)
	if !ok {
		return Completion{}, NewPermanentError(fmt.Errorf("%w (phase %s)", ErrScriptExhausted, phase))
	}
	if r.err != nil {
		return Completion{}, r.err
	}
	return Completion{Text: r.text, Tokens: CountTokens(req.System) + CountTokens(req.User) + CountTokens(r.text)}, nil
}

func (f *FakeClient) pop(phase string) (fakeReply, bool) {
	keys := make([]string, 0, len(f.byPhase))
	for k, q := range f.byPhase {
		if len(q) > 0 && (k == phase || strings.HasPrefix(phase, k)) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	if len(keys) > 0 {
		q := f.byPhase[keys[0]]
		f.byPhase[keys[0]] = q[1:]
		return q[0], true
	}
	if len(f.fallback) > 0 {
		r := f.fallback[0]
		f.fallback = f.fallback[1:]
		return r, true
	}
	return fakeReply{}, false
}
