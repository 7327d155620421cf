// Package graph executes agents as nodes of a directed workflow with static
// and conditional edges.
//
// Execution proceeds in supersteps. All nodes of the current frontier run
// concurrently, each on its own Fork of the RunContext, so siblings never see
// each other's writes. When the step completes, the staged changes are
// applied in node-name order and the next frontier is computed from static
// edges and router decisions evaluated on the merged state.
//
// A frontier node that another frontier node can still reach is deferred, so
// join nodes run exactly once after all live branches arrived:
//
//	b := graph.New("healthbot").
//		AddNode(a).AddNode(b).AddNode(join).
//		AddConditionalEdges("a", route, "b", "join").
//		AddEdge("b", "join").
//		SetEntryPoint("a").
//		SetFinishPoint("join")
//	g, err := b.Compile()
//
// A compiled Graph is itself a core.Agent and can be nested.
package graph
