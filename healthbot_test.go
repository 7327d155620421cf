package healthbot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/healthbot/config"
	"github.com/hupe1980/healthbot/logging"
	"github.com/hupe1980/healthbot/model"
	"github.com/hupe1980/healthbot/runner"
	"github.com/hupe1980/healthbot/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Addr: ":0", CORSOrigins: []string{"*"}},
		Log:      config.LogConfig{Level: "error"},
		Database: store.Config{Type: "memory"},
		Session:  config.SessionConfig{Backend: "memory", MaxTurns: 20},
		LLM:      config.LLMConfig{Provider: "mock"},
		Search:   config.SearchConfig{Provider: "none", MaxResults: 1},
		Alert:    config.AlertConfig{Provider: "log", Cooldown: time.Minute},
		Assistant: config.AssistantConfig{
			Region:             "India",
			MemoryPairs:        5,
			FrequencyWindow:    7 * 24 * time.Hour,
			FrequencyThreshold: 3,
			EmergencyWindow:    30 * 24 * time.Hour,
			EmergencyThreshold: 3,
			RiskThreshold:      0.85,
			MaxSteps:           25,
			MaxModelCalls:      12,
			Timeout:            10 * time.Second,
		},
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.LLM.Provider = "unknown"

	_, err = New(cfg)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestApp_ChatWithDemoModel(t *testing.T) {
	app, err := New(testConfig(), func(o *Options) { o.Logger = logging.NoOpLogger{} })
	require.NoError(t, err)

	t.Cleanup(func() { _ = app.Close() })

	ctx := context.Background()

	res, err := app.Chat(ctx, runner.ChatInput{UserID: "u1", Message: "I feel tired"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Answer(), "Summary:"))

	// The second turn sees the first one through the session store.
	res, err = app.Chat(ctx, runner.ChatInput{UserID: "u1", Message: "still tired"})
	require.NoError(t, err)
	assert.Equal(t, "I feel tired", res.State.Messages[0].Content)
	assert.Len(t, res.State.MemoryContext, 1)
}

func TestApp_SQLiteAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Database = store.Config{Type: "sqlite", DSN: ":memory:"}
	cfg.Session = config.SessionConfig{Backend: "redis", RedisURL: "redis://" + mr.Addr(), MaxTurns: 4, TTL: time.Hour}

	m := model.NewMockModel("m").
		On("multi-agent system", "All good.").
		On("Respond ONLY in JSON format", `{"symptoms": ["cough"], "risk_score": 0.2}`).
		On("You are an intent classifier", "general_medical").
		On("medical emergency classifier", "SAFE")

	app, err := New(cfg, func(o *Options) {
		o.Logger = logging.NoOpLogger{}
		o.Model = m
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = app.Close() })

	res, err := app.Chat(context.Background(), runner.ChatInput{UserID: "u2", Message: "cough"})
	require.NoError(t, err)
	assert.Equal(t, "All good.", res.Answer())

	history, err := app.Store.MessageHistory(context.Background(), "u2", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "cough", history[0].Symptoms)

	assert.True(t, mr.Exists("healthbot:session:u2"))

	rec := httptest.NewRecorder()
	app.Server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok","redis":"ok"}}`, rec.Body.String())
}

func TestNewModel(t *testing.T) {
	temp := 0.3

	for _, cfg := range []config.LLMConfig{
		{Provider: "openai", Model: "gpt-4o", APIKey: "k", Temperature: &temp},
		{Provider: "openrouter", Model: "mistralai/mistral-7b-instruct", APIKey: "k"},
		{Provider: "anthropic", Model: "claude-3-5-haiku-latest", APIKey: "k"},
		{Provider: "mock"},
	} {
		m, err := NewModel(cfg)
		require.NoError(t, err, cfg.Provider)
		assert.NotEmpty(t, m.Info().Name, cfg.Provider)
	}

	_, err := NewModel(config.LLMConfig{Provider: "nope"})
	assert.Error(t, err)
}
