package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/healthbot/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_GenerateNonStreaming(t *testing.T) {
	var captured map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Drink ginger tea."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL
		o.Temperature = 0.2
	})

	temp := 0.0
	text, err := model.Complete(context.Background(), m, model.Request{
		System:      "You are a medical assistant.",
		Messages:    []model.Message{model.UserMessage("I have a cold")},
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "Drink ginger tea.", text)

	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, 0.0, captured["temperature"])
	assert.Equal(t, "gpt-4o-mini", captured["model"])
}

func TestModel_GenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad request", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL
	})

	_, err := model.Complete(context.Background(), m, model.Prompt("hi"))
	assert.Error(t, err)
}

func TestNewOpenRouter_Info(t *testing.T) {
	m := NewOpenRouter("or-key", func(o *Options) { o.Model = "meta-llama/llama-3-8b-instruct" })

	info := m.Info()
	assert.Equal(t, "openrouter", info.Provider)
	assert.Equal(t, "meta-llama/llama-3-8b-instruct", info.Name)
	assert.Equal(t, OpenRouterBaseURL, m.opts.BaseURL)
}
