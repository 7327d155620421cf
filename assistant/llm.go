package assistant

import (
	"strings"
	"time"

	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/logging"
	"github.com/hupe1980/healthbot/model"
	"github.com/hupe1980/healthbot/prompt"
)

// complete renders a catalog prompt and runs it against m within the run's
// model call budget.
func (a *Assistant) complete(rc *core.RunContext, m model.Model, name string, data prompt.Data) (string, error) {
	if err := rc.Limiter.Acquire(); err != nil {
		return "", err
	}

	req, err := a.catalog.Render(name, data)
	if err != nil {
		return "", err
	}

	info := m.Info()
	start := time.Now()

	text, err := model.Complete(rc.Context, m, req)

	d := time.Since(start)
	logging.LogLLMCall(logging.With(rc.Logger(), "run_id", rc.RunID, "prompt", name), info.Name, d, err)
	a.opts.Metrics.ObserveLLM(info.Name, d, err)

	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}
