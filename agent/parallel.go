package agent

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/healthbot/core"
)

// ParallelAgent coordinates the concurrent execution of multiple child agents.
//
// Each child runs on an isolated Fork of the parent RunContext (branch
// "<parallel>.<child>") and therefore only sees the state as it was when the
// ParallelAgent started. After all children complete, their changes are
// staged into the parent in declaration order, which keeps the merged result
// deterministic regardless of completion order.
//
// The first failing child cancels its siblings; nothing is staged in that
// case.
type ParallelAgent struct {
	BaseAgent               // Embedded base agent functionality
	children  []core.Agent  // Child agents to execute in parallel
	timeout   time.Duration // Maximum execution time for all children, 0 = none
}

// NewParallelAgent creates a new parallel execution coordinator.
func NewParallelAgent(name string, timeout time.Duration, children ...core.Agent) *ParallelAgent {
	return &ParallelAgent{
		BaseAgent: NewBaseAgent(name),
		children:  children,
		timeout:   timeout,
	}
}

// SubAgents returns a copy of the children.
func (p *ParallelAgent) SubAgents() []core.Agent { return slices.Clone(p.children) }

// Run implements core.Agent.
func (p *ParallelAgent) Run(rc *core.RunContext) error {
	ctx := rc.Context

	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	parent := rc.WithContext(gctx)
	forks := make([]*core.RunContext, len(p.children))

	for i, child := range p.children {
		forks[i] = parent.Fork(p.Name() + "." + child.Name())

		g.Go(func() error {
			if err := child.Run(forks[i]); err != nil {
				return fmt.Errorf("parallel execution failed for agent %s: %w", child.Name(), err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, f := range forks {
		rc.Stage(f.Changes())
	}

	return nil
}
