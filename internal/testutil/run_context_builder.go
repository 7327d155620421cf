package testutil

import (
	"context"

	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/logging"
)

// RunContextBuilder constructs a RunContext for driving agents directly.
// Example:
//
//	rc := NewRunContextBuilder(state).Emit(events).MaxModelCalls(1).Build()
//
// Unset parts default to a background context, run ID "run-1", no event
// channel, no services, an unlimited model budget and a no-op logger.
type RunContextBuilder struct {
	ctx      context.Context
	runID    string
	state    *core.HealthState
	emit     chan<- core.Event
	services core.Services
	limiter  *core.ModelLimiter
	logger   logging.Logger
}

// NewRunContextBuilder creates a builder around state. A nil state becomes a
// "hello" message from user "user-1".
func NewRunContextBuilder(state *core.HealthState) *RunContextBuilder {
	if state == nil {
		state = NewStateBuilder("user-1").Build()
	}

	return &RunContextBuilder{
		ctx:    context.Background(),
		runID:  "run-1",
		state:  state,
		logger: logging.NoOpLogger{},
	}
}

// Context sets the parent context (chainable).
func (b *RunContextBuilder) Context(ctx context.Context) *RunContextBuilder { b.ctx = ctx; return b }

// RunID overrides the run ID (chainable).
func (b *RunContextBuilder) RunID(id string) *RunContextBuilder { b.runID = id; return b }

// Emit sets the event channel (chainable).
func (b *RunContextBuilder) Emit(ch chan<- core.Event) *RunContextBuilder { b.emit = ch; return b }

// Services sets the stores visible to agents (chainable).
func (b *RunContextBuilder) Services(svc core.Services) *RunContextBuilder { b.services = svc; return b }

// MaxModelCalls bounds the model calls of the run; zero means unlimited (chainable).
func (b *RunContextBuilder) MaxModelCalls(n int) *RunContextBuilder {
	b.limiter = core.NewModelLimiter(n)
	return b
}

// Logger sets the logger (chainable).
func (b *RunContextBuilder) Logger(l logging.Logger) *RunContextBuilder { b.logger = l; return b }

// Build returns the run context.
func (b *RunContextBuilder) Build() *core.RunContext {
	limiter := b.limiter
	if limiter == nil {
		limiter = core.NewModelLimiter(0)
	}

	return core.NewRunContext(b.ctx, b.runID, b.state, b.emit, b.services, limiter, b.logger)
}

// Drain collects the events of ch until it is closed.
func Drain(ch <-chan core.Event) []core.Event {
	var out []core.Event
	for ev := range ch {
		out = append(out, ev)
	}

	return out
}
