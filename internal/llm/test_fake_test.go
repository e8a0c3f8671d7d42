package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClientPhases(t *testing.T) {
	f := NewFakeClient().
		Reply("debug", "generic debug").
		Reply("debug_1_test", "specific").
		Reply("", "fallback")
	gen := func(phase string) (string, error) {
		out, err := f.Generate(WithPhase(context.Background(), phase), Request{User: phase})
		return out.Text, err
	}

	got, err := gen("debug_1_test")
	require.NoError(t, err)
	assert.Equal(t, "specific", got)

	got, err = gen("debug_1_test")
	require.NoError(t, err)
	assert.Equal(t, "generic debug", got, "falls back to the prefix queue")

	got, err = gen("coder")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	_, err = gen("coder")
	assert.ErrorIs(t, err, ErrScriptExhausted)
	assert.True(t, IsPermanent(err))
	assert.Len(t, f.Calls(), 4)
}

func TestFakeClientFail(t *testing.T) {
	boom := errors.New("boom")
	f := NewFakeClient().Fail("pm", boom).Reply("pm", "ok")
	ctx := WithPhase(context.Background(), "pm")
	_, err := f.Generate(ctx, Request{})
	assert.ErrorIs(t, err, boom)
	out, err := f.Generate(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Text)
}

func TestFakeClientFromYAML(t *testing.T) {
	f, err := NewFakeClientFromYAML([]byte("pm:\n  - a story\n\"\":\n  - anything\n"))
	require.NoError(t, err)
	out, err := f.Generate(WithPhase(context.Background(), "pm"), Request{})
	require.NoError(t, err)
	assert.Equal(t, "a story", out.Text)

	_, err = NewFakeClientFromYAML([]byte("pm: [unclosed"))
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	cli, err := New(context.Background(), Options{Provider: "FAKE"})
	require.NoError(t, err)
	assert.Equal(t, "FakeLLM", cli.Name())

	cli, err = New(context.Background(), Options{Provider: ProviderGroq, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "Groq:llama-3.3-70b-versatile", cli.Name())

	_, err = New(context.Background(), Options{Provider: "mystery"})
	assert.Error(t, err)
}
