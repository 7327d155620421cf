package testutil

import (
	"maps"

	"github.com/hupe1980/healthbot/core"
)

// StateBuilder constructs a HealthState with fluent chaining.
// Example:
//
//	s := NewStateBuilder("u1").Message("back pain").Symptoms("back pain").Build()
type StateBuilder struct {
	userID    string
	sessionID string
	message   string
	location  string
	turns     []core.Message
	symptoms  []string
	risk      float64
	outputs   map[string]string
}

// NewStateBuilder creates a builder for a state owned by userID. The session
// defaults to "session-1" and the message to "hello".
func NewStateBuilder(userID string) *StateBuilder {
	return &StateBuilder{userID: userID, sessionID: "session-1", message: "hello", outputs: map[string]string{}}
}

// Session sets the session ID (chainable).
func (b *StateBuilder) Session(id string) *StateBuilder { b.sessionID = id; return b }

// Message sets the current user message (chainable).
func (b *StateBuilder) Message(msg string) *StateBuilder { b.message = msg; return b }

// Location sets the user location (chainable).
func (b *StateBuilder) Location(loc string) *StateBuilder { b.location = loc; return b }

// Turns prepends earlier session turns before the current message (chainable).
func (b *StateBuilder) Turns(msgs ...core.Message) *StateBuilder {
	b.turns = append(b.turns, msgs...)
	return b
}

// Symptoms sets the extracted symptoms (chainable).
func (b *StateBuilder) Symptoms(symptoms ...string) *StateBuilder {
	b.symptoms = append(b.symptoms, symptoms...)
	return b
}

// Risk sets the risk score (chainable).
func (b *StateBuilder) Risk(score float64) *StateBuilder { b.risk = score; return b }

// Output records an agent output (chainable).
func (b *StateBuilder) Output(name, text string) *StateBuilder {
	b.outputs[name] = text
	return b
}

// Build returns the state.
func (b *StateBuilder) Build() *core.HealthState {
	s := core.NewHealthState(b.userID, b.sessionID, b.message, b.location)

	s.Messages = append(append([]core.Message{}, b.turns...), s.Messages...)
	s.Symptoms = append([]string(nil), b.symptoms...)
	s.RiskScore = b.risk
	maps.Copy(s.AgentOutputs, b.outputs)

	return s
}
