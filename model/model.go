package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrEmptyResponse is returned by Complete when a model produced no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Message is a single provider neutral chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// UserMessage is a convenience constructor for a user turn.
func UserMessage(text string) Message { return Message{Role: "user", Content: text} }

// AssistantMessage is a convenience constructor for an assistant turn.
func AssistantMessage(text string) Message { return Message{Role: "assistant", Content: text} }

// Request captures the normalized model input produced by agents.
type Request struct {
	System      string    `json:"system,omitempty"` // Instructions for the model
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"` // overrides the adapter default
	MaxTokens   int64     `json:"max_tokens,omitempty"`
}

// Prompt builds a request holding a single user message.
func Prompt(text string) Request {
	return Request{Messages: []Message{UserMessage(text)}}
}

// LastUserText returns the content of the last user message.
func (r Request) LastUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}

	return ""
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string      `json:"id"`
	Partial      bool        `json:"partial"`
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "openrouter", "anthropic", "mock"
}

// Model is the minimal interface required by agents to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Complete drains a generation and returns the final text. Partial chunks
// are concatenated when no final chunk carries the full text.
func Complete(ctx context.Context, m Model, req Request) (string, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		partial strings.Builder
		final   string
		done    bool
	)

	for r := range respCh {
		if r.Partial {
			partial.WriteString(r.Text)
			continue
		}

		final = r.Text
		done = true
	}

	if err := <-errCh; err != nil {
		return "", err
	}

	if !done {
		final = partial.String()
	}

	if strings.TrimSpace(final) == "" {
		return "", ErrEmptyResponse
	}

	return final, nil
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Replies are chosen by the first rule whose pattern occurs in the request
// (system prompt or any message), falling back to the default reply.
type MockModel struct {
	info Info

	mu           sync.Mutex
	rules        []mockRule
	defaultReply string
	err          error
	calls        []Request
}

type mockRule struct {
	pattern string
	reply   string
	err     error
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:         Info{Name: name, Provider: "mock"},
		defaultReply: "Mock response",
	}
}

// On registers a canned reply for requests containing pattern.
func (m *MockModel) On(pattern, reply string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules = append(m.rules, mockRule{pattern: pattern, reply: reply})

	return m
}

// OnError registers a failure for requests containing pattern.
func (m *MockModel) OnError(pattern string, err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules = append(m.rules, mockRule{pattern: pattern, err: err})

	return m
}

// SetDefault sets the reply used when no rule matches.
func (m *MockModel) SetDefault(reply string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.defaultReply = reply

	return m
}

// FailWith makes every unmatched request fail with err.
func (m *MockModel) FailWith(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err

	return m
}

// Calls returns the requests received so far.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.calls))
	copy(out, m.calls)

	return out
}

// Generate implements Model and emits a single final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.calls = append(m.calls, req)
	reply, err := m.match(req)
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if ctx.Err() != nil {
			errCh <- ctx.Err()
			return
		}

		if err != nil {
			errCh <- fmt.Errorf("mock model error: %w", err)
			return
		}

		respCh <- Response{Text: reply, FinishReason: "stop"}
	}()

	return respCh, errCh
}

func (m *MockModel) match(req Request) (string, error) {
	var sb strings.Builder

	sb.WriteString(req.System)

	for _, msg := range req.Messages {
		sb.WriteString("\n")
		sb.WriteString(msg.Content)
	}

	haystack := sb.String()

	for _, r := range m.rules {
		if strings.Contains(haystack, r.pattern) {
			return r.reply, r.err
		}
	}

	if m.err != nil {
		return "", m.err
	}

	return m.defaultReply, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
