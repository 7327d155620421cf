package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("bogus"))
	assert.Equal(t, "WARN", LogLevelWarn.String())
}

func TestNew_SlogJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("node finished", "node", "symptom_extractor")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "node finished", entry["msg"])
	assert.Equal(t, "symptom_extractor", entry["node"])
}

func TestNew_Zerolog(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Backend: "zerolog", Output: &buf})
	require.NoError(t, err)

	With(l, "run_id", "r1").Warn("alert suppressed", "user_id", "u1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "alert suppressed", entry["message"])
	assert.Equal(t, "r1", entry["run_id"])
	assert.Equal(t, "u1", entry["user_id"])
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "logrus"})
	assert.Error(t, err)
}

type recordingLogger struct {
	NoOpLogger
	msgs []string
	args [][]any
}

func (r *recordingLogger) Info(msg string, args ...any) {
	r.msgs = append(r.msgs, msg)
	r.args = append(r.args, args)
}

func (r *recordingLogger) Error(msg string, args ...any) {
	r.msgs = append(r.msgs, msg)
	r.args = append(r.args, args)
}

func TestWith_GenericLogger(t *testing.T) {
	rec := &recordingLogger{}
	With(rec, "component", "graph").Info("step", "n", 1)

	require.Len(t, rec.args, 1)
	assert.Equal(t, []any{"component", "graph", "n", 1}, rec.args[0])
}

func TestLogHelpers(t *testing.T) {
	rec := &recordingLogger{}
	LogLLMCall(rec, "gpt-4o-mini", time.Second, nil)
	LogLLMCall(rec, "gpt-4o-mini", time.Second, errors.New("timeout"))
	LogWorkflowExecution(rec, "healthbot", 9, time.Second, nil)

	assert.Equal(t, []string{"LLM call completed", "LLM call failed", "Workflow execution completed"}, rec.msgs)
}
