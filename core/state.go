package core

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Message roles used in conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// DefaultLocation is used when a chat request carries no location.
const DefaultLocation = "your city"

// Message is a single conversational turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HealthState is the shared state threaded through every node of a chat
// workflow. Nodes never mutate it directly; they stage an Update which the
// orchestrator applies with the per-field merge policies documented on Update.
type HealthState struct {
	UserID            string            `json:"user_id"`
	SessionID         string            `json:"session_id"`
	Messages          []Message         `json:"messages"`
	Symptoms          []string          `json:"symptoms"`
	StressLevel       string            `json:"stress_level"`
	RiskScore         float64           `json:"risk_score"`
	ResponseMessage   string            `json:"response_message"`
	Timestamp         time.Time         `json:"timestamp"`
	RecommendedPath   string            `json:"recommended_path"`
	AlertSent         bool              `json:"alert_sent"`
	Location          string            `json:"location"`
	SuspectedDiseases []string          `json:"suspected_diseases"`
	Intents           []string          `json:"intents"`
	AgentOutputs      map[string]string `json:"agent_outputs"`
	MemoryContext     []string          `json:"memory_context"`
	EmergencyFlags    []string          `json:"emergency_flags"`
	FrequentSymptoms  []string          `json:"frequent_symptoms"`
	EmergencyDetected bool              `json:"emergency_detected"`
	RecallRequested   bool              `json:"recall_requested"`
	InfoMode          string            `json:"info_mode"`
	SearchTopic       string            `json:"search_topic"`
	SearchResults     []string          `json:"search_results"`
}

// NewHealthState builds the initial state for one chat turn. The user message
// becomes the last entry of Messages.
func NewHealthState(userID, sessionID, message, location string) *HealthState {
	if location == "" {
		location = DefaultLocation
	}

	if sessionID == "" {
		sessionID = userID
	}

	return &HealthState{
		UserID:       userID,
		SessionID:    sessionID,
		Messages:     []Message{{Role: RoleUser, Content: message}},
		Location:     location,
		AgentOutputs: map[string]string{},
	}
}

// LastUserMessage returns the content of the most recent user turn.
func (s *HealthState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}

	return ""
}

// Output returns a named agent output, or "" when absent.
func (s *HealthState) Output(name string) string {
	if s.AgentOutputs == nil {
		return ""
	}

	return s.AgentOutputs[name]
}

// Clone returns a deep copy of the state.
func (s *HealthState) Clone() *HealthState {
	c := *s
	c.Messages = slices.Clone(s.Messages)
	c.Symptoms = slices.Clone(s.Symptoms)
	c.SuspectedDiseases = slices.Clone(s.SuspectedDiseases)
	c.Intents = slices.Clone(s.Intents)
	c.EmergencyFlags = slices.Clone(s.EmergencyFlags)
	c.FrequentSymptoms = slices.Clone(s.FrequentSymptoms)
	c.SearchResults = slices.Clone(s.SearchResults)
	c.MemoryContext = slices.Clone(s.MemoryContext)
	c.AgentOutputs = maps.Clone(s.AgentOutputs)

	if c.AgentOutputs == nil {
		c.AgentOutputs = map[string]string{}
	}

	return &c
}

// Apply merges u into the state in place. A nil update is a no-op.
func (s *HealthState) Apply(u *Update) {
	if u == nil {
		return
	}

	s.Messages = append(s.Messages, u.Messages...)
	s.Symptoms = union(s.Symptoms, u.Symptoms)
	s.SuspectedDiseases = union(s.SuspectedDiseases, u.SuspectedDiseases)
	s.Intents = union(s.Intents, u.Intents)
	s.EmergencyFlags = union(s.EmergencyFlags, u.EmergencyFlags)
	s.FrequentSymptoms = union(s.FrequentSymptoms, u.FrequentSymptoms)

	s.StressLevel = replace(s.StressLevel, u.StressLevel)
	s.RecommendedPath = replace(s.RecommendedPath, u.RecommendedPath)
	s.Location = replace(s.Location, u.Location)
	s.InfoMode = replace(s.InfoMode, u.InfoMode)
	s.SearchTopic = replace(s.SearchTopic, u.SearchTopic)

	if !u.Timestamp.IsZero() {
		s.Timestamp = u.Timestamp
	}

	s.RiskScore = max(s.RiskScore, u.RiskScore)
	s.AlertSent = s.AlertSent || u.AlertSent
	s.EmergencyDetected = s.EmergencyDetected || u.EmergencyDetected
	s.RecallRequested = s.RecallRequested || u.RecallRequested

	if u.ResponseReplace != nil {
		s.ResponseMessage = *u.ResponseReplace
	}

	for _, seg := range u.ResponseAppend {
		s.ResponseMessage = appendSegment(s.ResponseMessage, seg)
	}

	if len(u.AgentOutputs) > 0 {
		if s.AgentOutputs == nil {
			s.AgentOutputs = map[string]string{}
		}

		maps.Copy(s.AgentOutputs, u.AgentOutputs)
	}

	if u.SearchResults != nil {
		s.SearchResults = slices.Clone(u.SearchResults)
	}

	if u.MemoryContext != nil {
		s.MemoryContext = slices.Clone(u.MemoryContext)
	}
}

// Update is a staged, partial change to a HealthState. Zero values mean
// "no change". Field policies:
//
//   - Messages: appended
//   - Symptoms, SuspectedDiseases, Intents, EmergencyFlags,
//     FrequentSymptoms: ordered union,
//     first occurrence wins, empty entries dropped
//   - StressLevel, RecommendedPath, Location, InfoMode, SearchTopic,
//     Timestamp: replaced when set
//   - RiskScore: maximum
//   - AlertSent, EmergencyDetected, RecallRequested: logical OR
//   - ResponseReplace then ResponseAppend: the response is optionally reset,
//     then each segment is appended after a blank line; a segment starting
//     with a space is glued to the previous text
//   - AgentOutputs: key-wise overwrite
//   - SearchResults, MemoryContext: replaced when non-nil
type Update struct {
	Messages          []Message         `json:"messages,omitempty"`
	Symptoms          []string          `json:"symptoms,omitempty"`
	SuspectedDiseases []string          `json:"suspected_diseases,omitempty"`
	Intents           []string          `json:"intents,omitempty"`
	EmergencyFlags    []string          `json:"emergency_flags,omitempty"`
	FrequentSymptoms  []string          `json:"frequent_symptoms,omitempty"`
	StressLevel       string            `json:"stress_level,omitempty"`
	RecommendedPath   string            `json:"recommended_path,omitempty"`
	Location          string            `json:"location,omitempty"`
	InfoMode          string            `json:"info_mode,omitempty"`
	SearchTopic       string            `json:"search_topic,omitempty"`
	MemoryContext     []string          `json:"memory_context,omitempty"`
	Timestamp         time.Time         `json:"timestamp,omitzero"`
	RiskScore         float64           `json:"risk_score,omitempty"`
	AlertSent         bool              `json:"alert_sent,omitempty"`
	EmergencyDetected bool              `json:"emergency_detected,omitempty"`
	RecallRequested   bool              `json:"recall_requested,omitempty"`
	ResponseReplace   *string           `json:"response_replace,omitempty"`
	ResponseAppend    []string          `json:"response_append,omitempty"`
	AgentOutputs      map[string]string `json:"agent_outputs,omitempty"`
	SearchResults     []string          `json:"search_results,omitempty"`
}

// SetOutput records a named agent output on the update.
func (u *Update) SetOutput(name, text string) *Update {
	if u.AgentOutputs == nil {
		u.AgentOutputs = map[string]string{}
	}

	u.AgentOutputs[name] = text

	return u
}

// AppendResponse queues a response segment.
func (u *Update) AppendResponse(seg string) *Update {
	u.ResponseAppend = append(u.ResponseAppend, seg)
	return u
}

// ReplaceResponse discards the response built so far and starts over with text.
func (u *Update) ReplaceResponse(text string) *Update {
	u.ResponseReplace = &text
	u.ResponseAppend = nil

	return u
}

// IsEmpty reports whether applying u would leave any state unchanged.
func (u *Update) IsEmpty() bool {
	if u == nil {
		return true
	}

	return len(u.Messages) == 0 &&
		len(u.Symptoms) == 0 &&
		len(u.SuspectedDiseases) == 0 &&
		len(u.Intents) == 0 &&
		len(u.EmergencyFlags) == 0 &&
		len(u.FrequentSymptoms) == 0 &&
		u.StressLevel == "" &&
		u.RecommendedPath == "" &&
		u.Location == "" &&
		u.InfoMode == "" &&
		u.SearchTopic == "" &&
		u.Timestamp.IsZero() &&
		u.RiskScore == 0 &&
		!u.AlertSent &&
		!u.EmergencyDetected &&
		!u.RecallRequested &&
		u.ResponseReplace == nil &&
		len(u.ResponseAppend) == 0 &&
		len(u.AgentOutputs) == 0 &&
		u.SearchResults == nil &&
		u.MemoryContext == nil
}

// Merge composes two updates into a new one so that applying the result is
// equivalent to applying u and then v. Neither input is modified.
func (u *Update) Merge(v *Update) *Update {
	if u == nil {
		u = &Update{}
	}

	if v == nil {
		v = &Update{}
	}

	m := &Update{
		Messages:          append(slices.Clone(u.Messages), v.Messages...),
		Symptoms:          union(slices.Clone(u.Symptoms), v.Symptoms),
		SuspectedDiseases: union(slices.Clone(u.SuspectedDiseases), v.SuspectedDiseases),
		Intents:           union(slices.Clone(u.Intents), v.Intents),
		EmergencyFlags:    union(slices.Clone(u.EmergencyFlags), v.EmergencyFlags),
		FrequentSymptoms:  union(slices.Clone(u.FrequentSymptoms), v.FrequentSymptoms),
		StressLevel:       replace(u.StressLevel, v.StressLevel),
		RecommendedPath:   replace(u.RecommendedPath, v.RecommendedPath),
		Location:          replace(u.Location, v.Location),
		InfoMode:          replace(u.InfoMode, v.InfoMode),
		SearchTopic:       replace(u.SearchTopic, v.SearchTopic),
		Timestamp:         u.Timestamp,
		RiskScore:         max(u.RiskScore, v.RiskScore),
		AlertSent:         u.AlertSent || v.AlertSent,
		EmergencyDetected: u.EmergencyDetected || v.EmergencyDetected,
		RecallRequested:   u.RecallRequested || v.RecallRequested,
	}

	if !v.Timestamp.IsZero() {
		m.Timestamp = v.Timestamp
	}

	if v.ResponseReplace != nil {
		r := *v.ResponseReplace
		m.ResponseReplace = &r
		m.ResponseAppend = slices.Clone(v.ResponseAppend)
	} else {
		if u.ResponseReplace != nil {
			r := *u.ResponseReplace
			m.ResponseReplace = &r
		}

		m.ResponseAppend = append(slices.Clone(u.ResponseAppend), v.ResponseAppend...)
	}

	if len(u.AgentOutputs)+len(v.AgentOutputs) > 0 {
		m.AgentOutputs = make(map[string]string, len(u.AgentOutputs)+len(v.AgentOutputs))
		maps.Copy(m.AgentOutputs, u.AgentOutputs)
		maps.Copy(m.AgentOutputs, v.AgentOutputs)
	}

	switch {
	case v.SearchResults != nil:
		m.SearchResults = slices.Clone(v.SearchResults)
	case u.SearchResults != nil:
		m.SearchResults = slices.Clone(u.SearchResults)
	}

	switch {
	case v.MemoryContext != nil:
		m.MemoryContext = slices.Clone(v.MemoryContext)
	case u.MemoryContext != nil:
		m.MemoryContext = slices.Clone(u.MemoryContext)
	}

	if len(m.Messages) == 0 {
		m.Messages = nil
	}

	return m
}

func union(dst, src []string) []string {
	for _, v := range src {
		if v == "" || slices.Contains(dst, v) {
			continue
		}

		dst = append(dst, v)
	}

	return dst
}

func replace(cur, next string) string {
	if next != "" {
		return next
	}

	return cur
}

func appendSegment(cur, seg string) string {
	switch {
	case seg == "":
		return cur
	case cur == "":
		return strings.TrimLeft(seg, " ")
	case strings.HasPrefix(seg, " "):
		return cur + seg
	default:
		return cur + "\n\n" + seg
	}
}
