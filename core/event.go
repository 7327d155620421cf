package core

import (
	"time"

	"github.com/google/uuid"
)

// Event is the unit of communication between nodes, the orchestrator and
// callers. After emission it should be treated as immutable. It captures:
//   - Correlation (RunID, ID, Author, Branch)
//   - An optional human readable Text (agent output or status line)
//   - The state Update staged by the author before emission
//   - Orchestration signals (Escalate) and error metadata
//
// Events are streamed to runner callers for observability. The authoritative
// chat state is maintained by the orchestrator and not rebuilt from events.
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Author    string    `json:"author"`
	Branch    string    `json:"branch,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text,omitempty"`
	Update    *Update   `json:"update,omitempty"`
	Escalate  bool      `json:"escalate,omitempty"`
	Final     bool      `json:"final,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewEvent creates a bare event authored by 'author' bound to a run.
func NewEvent(runID, author string) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Author:    author,
		Timestamp: time.Now().UTC(),
	}
}

// NewTextEvent creates an event carrying a text payload.
func NewTextEvent(runID, author, text string) Event {
	e := NewEvent(runID, author)
	e.Text = text

	return e
}

// NewEscalationEvent marks a detected emergency. Consumers use it to surface
// the escalation before the rest of the workflow completes.
func NewEscalationEvent(runID, author, reason string) Event {
	e := NewTextEvent(runID, author, reason)
	e.Escalate = true

	return e
}

// NewErrorEvent records a failure of author.
func NewErrorEvent(runID, author string, err error) Event {
	e := NewEvent(runID, author)
	if err != nil {
		e.Error = err.Error()
	}

	return e
}

// NewID generates a new unique identifier for events and runs.
func NewID() string { return uuid.NewString() }

// NewFinalEvent closes a run. Its Update is the complete change set of the
// run relative to the initial state and Text is the answer for the user.
func NewFinalEvent(runID, author, answer string, changes *Update) Event {
	e := NewTextEvent(runID, author, answer)
	e.Update = changes
	e.Final = true

	return e
}

// IsFinal reports whether the event closes a run.
func (e Event) IsFinal() bool { return e.Final }

// IsEscalation reports whether the event signals an emergency escalation.
func (e Event) IsEscalation() bool { return e.Escalate }

// HasError reports whether the event records a failure.
func (e Event) HasError() bool { return e.Error != "" }

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
