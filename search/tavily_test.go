package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTavily_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "key", body["api_key"])
		assert.Equal(t, "Best hospitals in Pune", body["query"])
		assert.EqualValues(t, 2, body["max_results"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"Best hospitals in Pune","results":[
			{"title":"A","url":"https://a","content":"alpha","score":0.9},
			{"title":"B","url":"https://b","content":"beta","score":0.8},
			{"title":"C","url":"https://c","content":"gamma","score":0.7}]}`))
	}))
	defer srv.Close()

	tv := NewTavily("key", func(o *TavilyOptions) { o.BaseURL = srv.URL })

	results, err := tv.Search(context.Background(), "Best hospitals in Pune", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{Title: "A", URL: "https://a", Content: "alpha", Score: 0.9}, results[0])
}

func TestTavily_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"title":"ok","url":"https://ok"}]}`))
	}))
	defer srv.Close()

	tv := NewTavily("key", func(o *TavilyOptions) { o.BaseURL = srv.URL })

	results, err := tv.Search(context.Background(), "aspirin", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTavily_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"error":"invalid api key"}}`))
	}))
	defer srv.Close()

	tv := NewTavily("bad", func(o *TavilyOptions) {
		o.BaseURL = srv.URL
		o.MaxRetries = 0
	})

	_, err := tv.Search(context.Background(), "aspirin", 1)
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearcherFunc(t *testing.T) {
	var s Searcher = SearcherFunc(func(_ context.Context, q string, _ int) ([]Result, error) {
		return []Result{{Title: q}}, nil
	})

	r, err := s.Search(context.Background(), "x", 1)
	require.NoError(t, err)
	assert.Equal(t, "x", r[0].Title)
}
