package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/internal/testutil"
)

// MockAgent for testing composite agents
type MockAgent struct {
	mock.Mock
	name string
}

func NewMockAgent(name string) *MockAgent {
	return &MockAgent{name: name}
}

func (m *MockAgent) Name() string { return m.name }

func (m *MockAgent) Run(rc *core.RunContext) error {
	args := m.Called(rc)
	return args.Error(0)
}

func newRunContext(t *testing.T, message string) *core.RunContext {
	t.Helper()

	return testutil.NewRunContextBuilder(testutil.NewStateBuilder("user-1").Message(message).Build()).Build()
}

func TestBaseAgent(t *testing.T) {
	b := NewBaseAgent("supervisor")

	assert.Equal(t, "supervisor", b.Name())
	assert.Equal(t, "Agent supervisor", b.Description())

	b.SetDescription("joins all branches")
	assert.Equal(t, "joins all branches", b.Description())
}

func TestFuncAgent(t *testing.T) {
	a := NewFuncAgent("echo", func(rc *core.RunContext) error {
		rc.Stage((&core.Update{}).SetOutput("echo", rc.State().LastUserMessage()))
		return nil
	})

	rc := newRunContext(t, "hello")
	assert.NoError(t, a.Run(rc))
	assert.Equal(t, "hello", rc.State().Output("echo"))
}

func TestFindAgent(t *testing.T) {
	leaf := NewFuncAgent("search", func(*core.RunContext) error { return nil })
	root := NewSequentialAgent("info_search",
		NewFuncAgent("plan", func(*core.RunContext) error { return nil }),
		NewParallelAgent("fan", 0, leaf),
	)

	assert.Same(t, leaf, FindAgent(root, "search"))
	assert.Same(t, root, FindAgent(root, "info_search"))
	assert.Nil(t, FindAgent(root, "missing"))
	assert.Nil(t, FindAgent(nil, "x"))
}
