package agent

import (
	"fmt"
	"slices"

	"github.com/hupe1980/healthbot/core"
)

// SequentialAgent coordinates the execution of multiple child agents in sequence.
//
// Every child receives the same RunContext, so rc.State() inside a child
// already reflects whatever earlier children staged. Execution stops at the
// first error.
//
// SequentialAgent is ideal for:
//   - Multi-step pipelines inside a single graph node (plan, fetch, summarize)
//   - Steps whose outputs build upon each other
type SequentialAgent struct {
	BaseAgent              // Embedded base agent functionality
	children  []core.Agent // Child agents to execute in sequence
}

// NewSequentialAgent creates a new sequential execution coordinator.
func NewSequentialAgent(name string, children ...core.Agent) *SequentialAgent {
	return &SequentialAgent{
		BaseAgent: NewBaseAgent(name),
		children:  children,
	}
}

// SubAgents returns a copy of the children.
func (s *SequentialAgent) SubAgents() []core.Agent { return slices.Clone(s.children) }

// Run implements core.Agent. It executes each child agent in declaration
// order; errors stop further processing immediately.
func (s *SequentialAgent) Run(rc *core.RunContext) error {
	for _, child := range s.children {
		if err := rc.Err(); err != nil {
			return err
		}

		if err := child.Run(rc); err != nil {
			return fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}
	}

	return nil
}
