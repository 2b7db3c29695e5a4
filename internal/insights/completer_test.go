package insights

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompleter(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"message\":\"hi\"}"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("sk-test", "gpt-4o", srv.URL+"/v1/")
	reply, err := c.Complete(context.Background(), CompletionRequest{System: "sys", Prompt: "user", MaxTokens: 123})
	require.NoError(t, err)
	assert.Equal(t, `{"message":"hi"}`, reply)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, float64(123), body["max_tokens"])
	assert.Equal(t, "json_object", body["response_format"].(map[string]any)["type"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["content"])
}

func TestOpenAICompleterErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("sk-test", "gpt-4o", srv.URL)
	_, err := c.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	assert.ErrorContains(t, err, "chat completion")
}

func TestDisabledCompleter(t *testing.T) {
	_, err := Disabled{}.Complete(context.Background(), CompletionRequest{})
	assert.True(t, errors.Is(err, ErrDisabled))
}
