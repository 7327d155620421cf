package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_Rules(t *testing.T) {
	m := NewMockModel("mock").
		On("EMERGENCY or SAFE", "SAFE").
		OnError("search summary", errors.New("quota")).
		SetDefault("fallback reply")

	ctx := context.Background()

	text, err := Complete(ctx, m, Request{System: "Answer EMERGENCY or SAFE", Messages: []Message{UserMessage("cough")}})
	require.NoError(t, err)
	assert.Equal(t, "SAFE", text)

	_, err = Complete(ctx, m, Prompt("write a search summary"))
	assert.ErrorContains(t, err, "quota")

	text, err = Complete(ctx, m, Prompt("anything else"))
	require.NoError(t, err)
	assert.Equal(t, "fallback reply", text)

	assert.Len(t, m.Calls(), 3)
	assert.Equal(t, "anything else", m.Calls()[2].LastUserText())
}

func TestMockModel_FailWith(t *testing.T) {
	m := NewMockModel("mock").On("ok", "fine").FailWith(errors.New("down"))

	_, err := Complete(context.Background(), m, Prompt("hello"))
	assert.Error(t, err)

	text, err := Complete(context.Background(), m, Prompt("ok"))
	require.NoError(t, err)
	assert.Equal(t, "fine", text)
}

func TestMockModel_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Complete(ctx, NewMockModel("mock"), Prompt("hello"))
	assert.ErrorIs(t, err, context.Canceled)
}

type chunkModel struct{ chunks []Response }

func (c chunkModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	out := make(chan Response, len(c.chunks))
	errCh := make(chan error, 1)

	for _, ch := range c.chunks {
		out <- ch
	}

	close(out)
	close(errCh)

	return out, errCh
}

func (c chunkModel) Info() Info { return Info{Name: "chunks"} }

func TestComplete_PartialChunks(t *testing.T) {
	m := chunkModel{chunks: []Response{{Partial: true, Text: "Hel"}, {Partial: true, Text: "lo"}}}

	text, err := Complete(context.Background(), m, Prompt("x"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
}

func TestComplete_Empty(t *testing.T) {
	m := chunkModel{chunks: []Response{{Text: "  "}}}

	_, err := Complete(context.Background(), m, Prompt("x"))
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
