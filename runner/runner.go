package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/logging"
	"github.com/hupe1980/healthbot/metrics"
)

// ErrInvalidInput is returned when a chat input lacks a user id or message.
var ErrInvalidInput = errors.New("invalid chat input")

// ChatInput is one user message.
type ChatInput struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Location  string `json:"location,omitempty"`
}

// Validate checks the required fields.
func (in ChatInput) Validate() error {
	var missing []string

	if strings.TrimSpace(in.UserID) == "" {
		missing = append(missing, "user_id")
	}

	if strings.TrimSpace(in.Message) == "" {
		missing = append(missing, "message")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}

	return nil
}

// Result is the outcome of a synchronous run.
type Result struct {
	RunID  string
	State  *core.HealthState
	Events []core.Event
}

// Answer returns the final summary of the turn, or "" when there is none.
func (r *Result) Answer() string { return r.State.Output("final_summary") }

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls limits the number of model calls per run, 0 = unlimited.
	MaxModelCalls int
	// Timeout bounds a single run, 0 = none.
	Timeout time.Duration
	// Long-term symptom and conversation stores.
	Symptoms core.SymptomStore
	Memory   core.MemoryStore
	// Short-term session store.
	Sessions core.SessionStore
	// Metrics records chat turns; nil disables it.
	Metrics *metrics.Metrics
	// Logging services.
	Logger logging.Logger
}

// Runner coordinates chat turns: builds the initial state, creates run
// contexts, streams events and tracks active runs. Public methods are safe
// for concurrent use.
type Runner struct {
	agent core.Agent
	opts  Options

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   12,
		Timeout:         60 * time.Second,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Runner{
		agent:      agent,
		opts:       opts,
		activeRuns: make(map[string]context.CancelFunc),
	}
}

type run struct {
	rc     *core.RunContext
	emit   chan core.Event
	cancel context.CancelFunc
}

// Run starts an asynchronous chat turn. Events are streamed until the run
// ends; the error channel yields at most one error. Both channels are closed
// when the run is over.
func (r *Runner) Run(ctx context.Context, in ChatInput) (string, <-chan core.Event, <-chan error, error) {
	ru, err := r.prepare(ctx, in)
	if err != nil {
		return "", nil, nil, err
	}

	runID := ru.rc.RunID
	eventsCh := make(chan core.Event, r.opts.EventBufferSize)
	errorsCh := make(chan error, 1)
	forwarded := make(chan struct{})

	go func() {
		defer close(forwarded)

		r.processEvents(ru.rc, ru.emit, eventsCh)
	}()

	go func() {
		defer func() {
			r.finish(ru)
			close(eventsCh)
			close(errorsCh)
		}()

		err := r.execute(ru)

		close(ru.emit)
		<-forwarded

		if err != nil {
			errorsCh <- err
			return
		}

		final := core.NewFinalEvent(runID, r.agent.Name(), ru.rc.State().Output("final_summary"), ru.rc.Changes())

		select {
		case <-ru.rc.Done():
			errorsCh <- fmt.Errorf("agent execution failed: %w", ru.rc.Err())
		case eventsCh <- final:
		}
	}()

	return runID, eventsCh, errorsCh, nil
}

// RunSync executes a chat turn and returns the final state together with
// every event emitted.
func (r *Runner) RunSync(ctx context.Context, in ChatInput) (*Result, error) {
	ru, err := r.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	defer r.finish(ru)

	var events []core.Event

	collected := make(chan struct{})

	go func() {
		defer close(collected)

		for ev := range ru.emit {
			r.observeEvent(ru.rc, ev)
			events = append(events, ev)
		}
	}()

	err = r.execute(ru)

	close(ru.emit)
	<-collected

	if err != nil {
		return nil, err
	}

	return &Result{RunID: ru.rc.RunID, State: ru.rc.State(), Events: events}, nil
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.RLock()
	cancel, exists := r.activeRuns[runID]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// ActiveRuns returns the number of runs in progress.
func (r *Runner) ActiveRuns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.activeRuns)
}

// prepare validates the input, loads the session turns and registers the run.
func (r *Runner) prepare(ctx context.Context, in ChatInput) (*run, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	state := core.NewHealthState(in.UserID, in.SessionID, in.Message, in.Location)

	if r.opts.Sessions != nil {
		turns, err := r.opts.Sessions.Turns(ctx, state.SessionID)
		if err != nil {
			r.opts.Logger.Warn("failed to load session turns", "session_id", state.SessionID, "error", err)
		}

		state.Messages = append(turns, state.Messages...)
	}

	runID := core.NewID()

	var cancel context.CancelFunc
	if r.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	emit := make(chan core.Event, r.opts.EventBufferSize)
	services := core.Services{Symptoms: r.opts.Symptoms, Memory: r.opts.Memory, Sessions: r.opts.Sessions}

	rc := core.NewRunContext(ctx, runID, state, emit, services, core.NewModelLimiter(r.opts.MaxModelCalls), r.opts.Logger)

	return &run{rc: rc, emit: emit, cancel: cancel}, nil
}

func (r *Runner) execute(ru *run) error {
	r.opts.Metrics.RunStarted()

	start := time.Now()
	err := r.agent.Run(ru.rc)
	d := time.Since(start)

	r.opts.Metrics.ObserveChat(d, err)

	if err != nil {
		ru.rc.LogError("chat turn failed", "user_id", ru.rc.UserID, "duration", d, "error", err)
		return fmt.Errorf("agent execution failed: %w", err)
	}

	s := ru.rc.State()
	ru.rc.LogInfo("chat turn completed",
		"user_id", ru.rc.UserID,
		"duration", d,
		"model_calls", ru.rc.Limiter.Count(),
		"risk_score", s.RiskScore,
		"alert_sent", s.AlertSent,
		"path", s.RecommendedPath,
	)

	return nil
}

func (r *Runner) finish(ru *run) {
	ru.cancel()

	r.mu.Lock()
	delete(r.activeRuns, ru.rc.RunID)
	r.mu.Unlock()
}

// processEvents forwards agent events to the caller. Once the run is
// cancelled remaining events are drained and dropped so that the agent never
// blocks.
func (r *Runner) processEvents(rc *core.RunContext, agentEmit <-chan core.Event, eventsCh chan<- core.Event) {
	for ev := range agentEmit {
		r.observeEvent(rc, ev)

		select {
		case <-rc.Done():
		case eventsCh <- ev:
		}
	}
}

func (r *Runner) observeEvent(rc *core.RunContext, ev core.Event) {
	if ev.IsEscalation() {
		rc.LogWarn("emergency escalation", "author", ev.Author, "reason", ev.Text)
	}

	if ev.HasError() {
		rc.LogError("agent reported error", "author", ev.Author, "error", ev.Error)
	}
}
