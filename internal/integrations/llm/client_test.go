package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcare/internal/logger"
)

func TestNewSelectsProvider(t *testing.T) {
	c, err := New(Options{Provider: "anthropic", APIKey: "k"}, nil, nil)
	require.NoError(t, err)
	a, ok := c.(*AnthropicClient)
	require.True(t, ok)
	assert.Equal(t, defaultAnthropicModel, a.model)
	assert.Equal(t, defaultMaxTokens, a.maxTokens)

	c, err = New(Options{Provider: "openai", APIKey: "k", Model: "gpt-test", MaxTokens: 512}, nil, nil)
	require.NoError(t, err)
	o, ok := c.(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, "gpt-test", o.model)
	assert.Equal(t, 512, o.maxTokens)

	_, err = New(Options{Provider: "local"}, nil, nil)
	require.Error(t, err)
}

func TestOpenAIComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"severity\":\"low\"}"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
}`)
	}))
	defer srv.Close()

	c := NewOpenAI(Options{APIKey: "sk-test", Model: "gpt-4o-mini", MaxTokens: 300, BaseURL: srv.URL + "/v1"}, srv.Client(), logger.Discard())
	resp, err := c.Complete(context.Background(), Request{System: "sys", User: "usr"})
	require.NoError(t, err)

	assert.Equal(t, `{"severity":"low"}`, resp.Text)
	assert.Equal(t, "openai", resp.Provider)
	assert.EqualValues(t, 17, resp.Usage.TotalTokens())

	format, _ := body["response_format"].(map[string]any)
	assert.Equal(t, "json_object", format["type"])
	assert.EqualValues(t, 300, body["max_tokens"])
	msgs, _ := body["messages"].([]any)
	require.Len(t, msgs, 2)
}

func TestOpenAICompleteFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAI(Options{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"}, srv.Client(), logger.Discard())
	_, err := c.Complete(context.Background(), Request{System: "sys", User: "usr"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCallFailed))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(raw), `"max_tokens":1024`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-test",
  "content": [{"type": "text", "text": "{\"urgency\":\"normal\"}"}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 20, "output_tokens": 9}
}`)
	}))
	defer srv.Close()

	c := NewAnthropic(Options{APIKey: "test", Model: "claude-test", MaxTokens: 2048, BaseURL: srv.URL + "/"}, srv.Client(), logger.Discard())
	resp, err := c.Complete(context.Background(), Request{System: "sys", User: "usr", MaxTokens: 1024})
	require.NoError(t, err)
	assert.Equal(t, `{"urgency":"normal"}`, resp.Text)
	assert.EqualValues(t, 20, resp.Usage.InputTokens)
	assert.EqualValues(t, 9, resp.Usage.OutputTokens)
}

func TestAnthropicCompleteSingleAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer srv.Close()

	c := NewAnthropic(Options{APIKey: "test", Model: "claude-test", MaxTokens: 2048, BaseURL: srv.URL + "/"}, srv.Client(), logger.Discard())
	_, err := c.Complete(context.Background(), Request{System: "sys", User: "usr"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCallFailed))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestUsageAdd(t *testing.T) {
	u := Usage{InputTokens: 1, OutputTokens: 2}
	u.Add(Usage{InputTokens: 3, OutputTokens: 4, CacheReadInputTokens: 5})
	assert.Equal(t, Usage{InputTokens: 4, OutputTokens: 6, CacheReadInputTokens: 5}, u)
	assert.EqualValues(t, 10, u.TotalTokens())
}
