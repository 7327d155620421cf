package core

import (
	"context"

	"github.com/hupe1980/healthbot/logging"
)

// RunContext carries execution state & helpers for one agent invocation.
// It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (UserID, SessionID, RunID) and the Branch label
//   - The HealthState snapshot the agent started from
//   - Staged changes not yet emitted, and changes already emitted
//   - Backing services (symptom, memory and session stores)
//   - The run-wide ModelLimiter and a logger
//
// Changes staged via Stage accumulate until EmitEvent attaches them to an
// event. Fork produces an isolated child for a concurrently executing branch
// while keeping references to the shared services.
type RunContext struct {
	Context                  context.Context
	UserID, SessionID, RunID string
	Branch                   string
	Emit                     chan<- Event
	Services                 Services
	Limiter                  *ModelLimiter

	base      *HealthState
	pending   *Update
	committed *Update

	*loggerAdapter
}

// NewRunContext constructs a RunContext over the initial state. emit may be
// nil when nobody consumes events.
func NewRunContext(
	ctx context.Context,
	runID string,
	state *HealthState,
	emit chan<- Event,
	services Services,
	limiter *ModelLimiter,
	logger logging.Logger,
) *RunContext {
	if state == nil {
		state = &HealthState{AgentOutputs: map[string]string{}}
	}

	return &RunContext{
		Context:       ctx,
		UserID:        state.UserID,
		SessionID:     state.SessionID,
		RunID:         runID,
		Emit:          emit,
		Services:      services,
		Limiter:       limiter,
		base:          state.Clone(),
		pending:       &Update{},
		committed:     &Update{},
		loggerAdapter: newLoggerAdapter(logger, "run_id", runID),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// State returns a copy of the starting snapshot with every change of this
// context applied, emitted or not.
func (rc *RunContext) State() *HealthState {
	s := rc.base.Clone()
	s.Apply(rc.committed)
	s.Apply(rc.pending)

	return s
}

// Stage merges u into the pending update buffer.
func (rc *RunContext) Stage(u *Update) {
	if u.IsEmpty() {
		return
	}

	rc.pending = rc.pending.Merge(u)
}

// Pending returns a copy of the staged, not yet emitted, update.
func (rc *RunContext) Pending() *Update { return (&Update{}).Merge(rc.pending) }

// Changes returns every change made through this context (emitted and
// pending) as a single update relative to the starting snapshot.
func (rc *RunContext) Changes() *Update { return rc.committed.Merge(rc.pending) }

// EmitEvent attaches the pending update to ev and sends it. The pending buffer
// moves to the committed changes even when there is no consumer.
func (rc *RunContext) EmitEvent(ev Event) error {
	if !rc.pending.IsEmpty() {
		ev.Update = ev.Update.Merge(rc.pending)
	}

	if ev.Branch == "" {
		ev.Branch = rc.Branch
	}

	if ev.RunID == "" {
		ev.RunID = rc.RunID
	}

	if rc.Emit != nil {
		select {
		case <-rc.Context.Done():
			return rc.Context.Err()
		case rc.Emit <- ev:
		}
	}

	rc.committed = rc.committed.Merge(rc.pending)
	rc.pending = &Update{}

	return nil
}

// Flush emits a completion event for author when changes are still pending.
func (rc *RunContext) Flush(author string) error {
	if rc.pending.IsEmpty() {
		return nil
	}

	return rc.EmitEvent(NewEvent(rc.RunID, author))
}

// Fork derives an isolated context for a branch. The child starts from the
// current State() with fresh buffers; its changes never leak into the parent
// until the orchestrator stages them explicitly.
func (rc *RunContext) Fork(branch string) *RunContext {
	b := branch
	if rc.Branch != "" && branch != "" {
		b = rc.Branch + "." + branch
	} else if branch == "" {
		b = rc.Branch
	}

	return &RunContext{
		Context:       rc.Context,
		UserID:        rc.UserID,
		SessionID:     rc.SessionID,
		RunID:         rc.RunID,
		Branch:        b,
		Emit:          rc.Emit,
		Services:      rc.Services,
		Limiter:       rc.Limiter,
		base:          rc.State(),
		pending:       &Update{},
		committed:     &Update{},
		loggerAdapter: rc.loggerAdapter.with("branch", b),
	}
}

// WithContext returns a shallow copy bound to ctx. Buffers are shared with
// the receiver.
func (rc *RunContext) WithContext(ctx context.Context) *RunContext {
	c := *rc
	c.Context = ctx

	return &c
}

// loggerAdapter wraps a logging.Logger, prefixing every entry with a fixed
// set of key/value pairs. It guarantees a non-nil logger by substituting a
// NoOpLogger when constructed with nil.
type loggerAdapter struct {
	logger logging.Logger
	fields []any
}

func newLoggerAdapter(l logging.Logger, fields ...any) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}

	return &loggerAdapter{logger: l, fields: fields}
}

func (l *loggerAdapter) with(fields ...any) *loggerAdapter {
	merged := make([]any, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)

	return &loggerAdapter{logger: l.logger, fields: merged}
}

func (l *loggerAdapter) args(args []any) []any {
	if len(l.fields) == 0 {
		return args
	}

	out := make([]any, 0, len(l.fields)+len(args))
	out = append(out, l.fields...)

	return append(out, args...)
}

// Logger returns the underlying logger.
func (l *loggerAdapter) Logger() logging.Logger { return l.logger }

// LogDebug logs a debug message.
func (l *loggerAdapter) LogDebug(msg string, args ...any) { l.logger.Debug(msg, l.args(args)...) }

// LogInfo logs an info message.
func (l *loggerAdapter) LogInfo(msg string, args ...any) { l.logger.Info(msg, l.args(args)...) }

// LogWarn logs a warning message.
func (l *loggerAdapter) LogWarn(msg string, args ...any) { l.logger.Warn(msg, l.args(args)...) }

// LogError logs an error message.
func (l *loggerAdapter) LogError(msg string, args ...any) { l.logger.Error(msg, l.args(args)...) }
