// Package agent contains reusable building blocks for workflow nodes:
//
//  1. Identity plumbing shared by concrete agents (BaseAgent)
//  2. A function adapter for small nodes (FuncAgent)
//  3. Coordination patterns (SequentialAgent, ParallelAgent)
//
// Composite agents nest arbitrarily and are themselves core.Agents, so a
// composite can be a single node of an orchestration graph.
//
// Execution model:
//   - SequentialAgent hands the same RunContext to every child, so each child
//     sees what earlier children staged
//   - ParallelAgent runs every child on its own Fork and stages the children's
//     changes into the parent in declaration order once all of them finished
package agent
