package agent

import (
	"fmt"

	"github.com/hupe1980/healthbot/core"
)

// BaseAgent bundles identity helpers. Embed it in concrete agent
// implementations and supply a Run method to satisfy core.Agent.
type BaseAgent struct {
	name        string // Node name, unique within a workflow
	description string // Human readable purpose
}

// NewBaseAgent constructs a BaseAgent with generated description (customizable via SetDescription).
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the node name of this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// FuncAgent adapts a plain function to core.Agent.
type FuncAgent struct {
	BaseAgent
	fn func(rc *core.RunContext) error
}

// NewFuncAgent wraps fn as an agent named name.
func NewFuncAgent(name string, fn func(rc *core.RunContext) error) *FuncAgent {
	return &FuncAgent{BaseAgent: NewBaseAgent(name), fn: fn}
}

// Run implements core.Agent.
func (f *FuncAgent) Run(rc *core.RunContext) error { return f.fn(rc) }

// FindAgent performs a depth-first search over root and, for composite
// agents, their children. It returns nil if no agent matches.
func FindAgent(root core.Agent, name string) core.Agent {
	if root == nil {
		return nil
	}

	if root.Name() == name {
		return root
	}

	if c, ok := root.(interface{ SubAgents() []core.Agent }); ok {
		for _, child := range c.SubAgents() {
			if found := FindAgent(child, name); found != nil {
				return found
			}
		}
	}

	return nil
}
