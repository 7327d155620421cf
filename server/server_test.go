package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/healthbot/assistant"
	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/memory"
	"github.com/hupe1980/healthbot/metrics"
	"github.com/hupe1980/healthbot/model"
	"github.com/hupe1980/healthbot/runner"
)

type fakeChatter struct {
	result *runner.Result
	err    error
	inputs []runner.ChatInput
}

func (f *fakeChatter) RunSync(_ context.Context, in runner.ChatInput) (*runner.Result, error) {
	f.inputs = append(f.inputs, in)

	if f.err != nil {
		return nil, f.err
	}

	return f.result, nil
}

func stateWithSummary(summary string) *core.HealthState {
	s := core.NewHealthState("u1", "", "hi", "")
	s.Symptoms = []string{"fever"}
	s.RiskScore = 0.3
	s.SuspectedDiseases = []string{"flu"}
	s.RecommendedPath = "compiled_response"
	s.MemoryContext = []string{"Human: a\nAI: b"}

	if summary != "" {
		s.AgentOutputs["final_summary"] = summary
	}

	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestChat_OK(t *testing.T) {
	chat := &fakeChatter{result: &runner.Result{State: stateWithSummary("Stay hydrated.")}}
	s := New(chat)

	rec := do(t, s.Handler(), http.MethodPost, "/chat", `{"user_id":"u1","message":"I have fever","location":"Pune"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Stay hydrated.", resp.Response)
	assert.Equal(t, []string{"fever"}, resp.Symptoms)
	assert.Equal(t, 0.3, resp.RiskScore)
	assert.Equal(t, []string{"flu"}, resp.SuspectedDiseases)
	assert.Equal(t, "compiled_response", resp.RecommendedPath)
	assert.Equal(t, []string{"Human: a\nAI: b"}, resp.History)

	require.Len(t, chat.inputs, 1)
	assert.Equal(t, runner.ChatInput{UserID: "u1", Message: "I have fever", Location: "Pune"}, chat.inputs[0])
}

func TestChat_FallbackResponse(t *testing.T) {
	st := core.NewHealthState("u1", "", "hi", "")
	s := New(&fakeChatter{result: &runner.Result{State: st}})

	rec := do(t, s.Handler(), http.MethodPost, "/chat", `{"user_id":"u1","message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, FallbackResponse, resp["response"])
	assert.Equal(t, []any{}, resp["symptoms"], "lists are never null")
	assert.Equal(t, []any{}, resp["history"])
}

func TestChat_BadRequests(t *testing.T) {
	chat := &fakeChatter{}
	s := New(chat)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing user", `{"message":"hi"}`},
		{"missing message", `{"user_id":"u1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}

	assert.Empty(t, chat.inputs)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{errors.New("boom"), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		s := New(&fakeChatter{err: tt.err})
		rec := do(t, s.Handler(), http.MethodPost, "/chat", `{"user_id":"u1","message":"hi"}`)
		assert.Equal(t, tt.code, rec.Code)
	}
}

func TestChat_RateLimit(t *testing.T) {
	s := New(&fakeChatter{result: &runner.Result{State: stateWithSummary("ok")}}, func(o *Options) {
		o.RateLimit = 0.001
		o.RateBurst = 2
	})

	for i := 0; i < 2; i++ {
		rec := do(t, s.Handler(), http.MethodPost, "/chat", `{"user_id":"u1","message":"hi"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, s.Handler(), http.MethodPost, "/chat", `{"user_id":"u1","message":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = do(t, s.Handler(), http.MethodPost, "/chat", `{"user_id":"u2","message":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "buckets are per user")
}

func TestHistory(t *testing.T) {
	store := memory.NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 14, 5, 0, 0, time.UTC)

	for i, q := range []string{"first", "second", "third"} {
		require.NoError(t, store.LogSymptoms(ctx, core.SymptomRecord{
			UserID:        "u1",
			Query:         q,
			Symptoms:      []string{"cough", "fever"},
			FinalResponse: "resp " + q,
			Timestamp:     base.Add(time.Duration(i) * time.Hour),
		}))
	}

	s := New(&fakeChatter{}, func(o *Options) { o.History = store })

	rec := do(t, s.Handler(), http.MethodGet, "/history/u1?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var hist struct {
		History []HistoryItem `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Equal(t, []HistoryItem{
		{Symptoms: "cough, fever", Response: "resp second", Timestamp: "2025-06-01 15:05"},
		{Symptoms: "cough, fever", Response: "resp third", Timestamp: "2025-06-01 16:05"},
	}, hist.History)

	rec = do(t, s.Handler(), http.MethodGet, "/history/u1/queries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"history":["first","second","third"]}`, rec.Body.String())

	rec = do(t, s.Handler(), http.MethodGet, "/history/nobody", "")
	assert.JSONEq(t, `{"history":[]}`, rec.Body.String())

	rec = do(t, s.Handler(), http.MethodGet, "/history/u1?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := New(&fakeChatter{}, func(o *Options) {
		o.Checks = map[string]HealthCheck{"database": func(context.Context) error { return nil }}
	})

	rec := do(t, s.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, rec.Body.String())

	s = New(&fakeChatter{}, func(o *Options) {
		o.Checks = map[string]HealthCheck{"redis": func(context.Context) error { return errors.New("down") }}
	})

	rec = do(t, s.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"redis":"down"}}`, rec.Body.String())
}

func TestMetricsAndCORS(t *testing.T) {
	m := metrics.New("healthbot")
	m.ObserveAlert(metrics.AlertSent)

	s := New(&fakeChatter{}, func(o *Options) { o.Metrics = m })

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `healthbot_alerts_total{status="sent"} 1`)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUserLimiter_Cleanup(t *testing.T) {
	l := newUserLimiter(1, 1)
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))

	l.cleanup(time.Now())
	assert.Equal(t, 1, l.size())

	l.cleanup(time.Now().Add(time.Hour))
	assert.Equal(t, 0, l.size())
}

func TestChat_EndToEnd(t *testing.T) {
	m := model.NewMockModel("mock").
		On("multi-agent system", "Rest and drink fluids.").
		On("Respond ONLY in JSON format", `{"symptoms": ["fever"], "stress_level": "low", "risk_score": 0.2, "response_message": "Get well soon."}`).
		On("You are an intent classifier", "home_remedy").
		On("medical emergency classifier", "SAFE").
		On("cautious medical assistant", "Suspected Disease(s):\n- Viral fever\nRemedies:\n1. Rest")

	a, err := assistant.New(m)
	require.NoError(t, err)

	store := memory.NewInMemoryStore()
	r := runner.New(a, func(o *runner.Options) {
		o.Symptoms = store
		o.Memory = store
	})

	s := New(r, func(o *Options) { o.History = store })

	rec := do(t, s.Handler(), http.MethodPost, "/chat", `{"user_id":"u1","message":"I have a fever"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Rest and drink fluids.", resp.Response)
	assert.Equal(t, []string{"fever"}, resp.Symptoms)
	assert.Equal(t, []string{"Viral fever"}, resp.SuspectedDiseases)
	assert.False(t, resp.AlertSent)
	assert.Equal(t, "compiled_response", resp.RecommendedPath)

	rec = do(t, s.Handler(), http.MethodGet, "/history/u1/queries", "")
	assert.JSONEq(t, `{"history":["I have a fever"]}`, rec.Body.String())
}
