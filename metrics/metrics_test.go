package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("")

	m.RunStarted()
	m.ObserveChat(time.Second, nil)
	m.RunStarted()
	m.ObserveChat(time.Second, errors.New("boom"))
	m.ObserveLLM("gpt-4o", 100*time.Millisecond, nil)
	m.ObserveAlert(AlertSent)
	m.ObserveAlert(AlertSent)
	m.NodeFinished(nil, "supervisor", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatRequests.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatRequests.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmCalls.WithLabelValues("gpt-4o", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.alerts.WithLabelValues(AlertSent)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.nodeDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := New("healthbot")
	m.ObserveAlert(AlertFailed)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `healthbot_alerts_total{status="failed"} 1`)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RunStarted()
		m.ObserveChat(time.Second, nil)
		m.ObserveLLM("x", time.Second, nil)
		m.ObserveAlert(AlertSent)
		m.NodeFinished(nil, "n", time.Second, nil)
	})
	assert.Nil(t, m.Registry())
}
