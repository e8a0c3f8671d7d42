package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"## Filename\nmain.py"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	cli := NewOpenAIClient("Groq", "secret", srv.URL+"/", "llama", 0.2)
	out, err := cli.Generate(context.Background(), Request{System: "be terse", User: "write code"})
	require.NoError(t, err)
	assert.Equal(t, "## Filename\nmain.py", out.Text)
	assert.Equal(t, 15, out.Tokens)

	msgs, _ := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "llama", got["model"])
}

func TestOpenAIClientErrors(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	cli := NewOpenAIClient("OpenAI", "bad", srv.URL, "gpt", 0)
	_, err := cli.Generate(context.Background(), Request{User: "x"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))

	status = http.StatusTooManyRequests
	_, err = cli.Generate(context.Background(), Request{User: "x"})
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestOpenAIClientEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()
	_, err := NewOpenAIClient("OpenAI", "k", srv.URL, "gpt", 0).Generate(context.Background(), Request{User: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
