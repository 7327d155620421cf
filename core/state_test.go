package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewHealthState_Defaults(t *testing.T) {
	s := NewHealthState("u1", "", "I feel dizzy", "")

	assert.Equal(t, "u1", s.SessionID)
	assert.Equal(t, DefaultLocation, s.Location)
	assert.Equal(t, "I feel dizzy", s.LastUserMessage())
	assert.NotNil(t, s.AgentOutputs)
}

func TestHealthState_ApplyPolicies(t *testing.T) {
	s := NewHealthState("u1", "s1", "back pain", "Pune")
	s.Symptoms = []string{"back pain"}
	s.RiskScore = 0.5
	s.ResponseMessage = "Rest well."

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Apply(&Update{
		Messages:          []Message{{Role: RoleAssistant, Content: "ok"}},
		Symptoms:          []string{"fever", "back pain", ""},
		SuspectedDiseases: []string{"flu"},
		Intents:           []string{"home_remedy"},
		StressLevel:       "high",
		RiskScore:         0.3,
		AlertSent:         true,
		Timestamp:         ts,
		ResponseAppend:    []string{" ⚠️ frequent", "🔴 Medical Escalation:"},
		AgentOutputs:      map[string]string{"home_remedy": "tea"},
		SearchResults:     []string{"r1"},
	})

	assert.Len(t, s.Messages, 2)
	assert.Equal(t, []string{"back pain", "fever"}, s.Symptoms)
	assert.Equal(t, []string{"flu"}, s.SuspectedDiseases)
	assert.Equal(t, "high", s.StressLevel)
	assert.Equal(t, 0.5, s.RiskScore, "risk keeps the maximum")
	assert.True(t, s.AlertSent)
	assert.Equal(t, ts, s.Timestamp)
	assert.Equal(t, "Pune", s.Location, "empty location leaves the value untouched")
	assert.Equal(t, "Rest well. ⚠️ frequent\n\n🔴 Medical Escalation:", s.ResponseMessage)
	assert.Equal(t, "tea", s.Output("home_remedy"))
	assert.Equal(t, []string{"r1"}, s.SearchResults)

	// OR never resets a flag.
	s.Apply(&Update{})
	assert.True(t, s.AlertSent)
}

func TestHealthState_ResponseReplace(t *testing.T) {
	s := &HealthState{ResponseMessage: "old"}
	u := (&Update{}).AppendResponse("dropped").ReplaceResponse("new")
	u.AppendResponse("tail")
	s.Apply(u)

	assert.Equal(t, "new\n\ntail", s.ResponseMessage)
}

func TestHealthState_AppendToEmptyResponse(t *testing.T) {
	s := &HealthState{}
	s.Apply(&Update{ResponseAppend: []string{" leading space", "next"}})

	assert.Equal(t, "leading space\n\nnext", s.ResponseMessage)
}

func TestUpdate_MergeMatchesSequentialApply(t *testing.T) {
	base := func() *HealthState {
		s := NewHealthState("u1", "s1", "hello", "")
		s.Symptoms = []string{"cough"}
		s.ResponseMessage = "start"

		return s
	}

	replaced := "reset"
	updates := []*Update{
		{Symptoms: []string{"fever", "cough"}, RiskScore: 0.4, ResponseAppend: []string{"a"}, AgentOutputs: map[string]string{"x": "1"}},
		{Symptoms: []string{"rash"}, StressLevel: "low", EmergencyDetected: true, ResponseAppend: []string{" b"}, SearchResults: []string{"s"}},
		{RiskScore: 0.9, ResponseReplace: &replaced, ResponseAppend: []string{"c"}, AgentOutputs: map[string]string{"x": "2", "y": "3"}},
		{Intents: []string{"info_search"}, StressLevel: "high", Messages: []Message{{Role: RoleAssistant, Content: "bye"}}},
	}

	sequential := base()
	for _, u := range updates {
		sequential.Apply(u)
	}

	// left fold
	var left *Update
	for _, u := range updates {
		left = left.Merge(u)
	}

	// right-associated grouping
	right := updates[0].Merge(updates[1].Merge(updates[2].Merge(updates[3])))

	viaLeft := base()
	viaLeft.Apply(left)

	viaRight := base()
	viaRight.Apply(right)

	assert.Equal(t, sequential, viaLeft)
	assert.Equal(t, sequential, viaRight)
	assert.Equal(t, "reset\n\nc", sequential.ResponseMessage)
	assert.Equal(t, []string{"cough", "fever", "rash"}, sequential.Symptoms)
}

func TestUpdate_MergeDoesNotAlias(t *testing.T) {
	u := &Update{Symptoms: []string{"a"}, AgentOutputs: map[string]string{"k": "v"}}
	m := u.Merge(&Update{Symptoms: []string{"b"}})

	m.Symptoms[0] = "changed"
	m.AgentOutputs["k"] = "changed"

	assert.Equal(t, "a", u.Symptoms[0])
	assert.Equal(t, "v", u.AgentOutputs["k"])
}

func TestUpdate_IsEmpty(t *testing.T) {
	var nilUpdate *Update
	assert.True(t, nilUpdate.IsEmpty())
	assert.True(t, (&Update{}).IsEmpty())
	assert.False(t, (&Update{RecallRequested: true}).IsEmpty())
	assert.False(t, (&Update{SearchResults: []string{}}).IsEmpty())
}

func TestFinalAnswer(t *testing.T) {
	assert.Equal(t, "sum", FinalAnswer(map[string]string{"final_summary": "sum", "a": "longer text"}))
	assert.Equal(t, "longer text", FinalAnswer(map[string]string{"a": "short", "b": "longer text"}))
	assert.Equal(t, "", FinalAnswer(nil))
}
