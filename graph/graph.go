package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/logging"
)

// DefaultMaxSteps bounds the number of supersteps of a run.
const DefaultMaxSteps = 25

var (
	// ErrNoEntryPoint is returned by Compile when no entry point is set.
	ErrNoEntryPoint = errors.New("graph has no entry point")
	// ErrUnknownNode is returned when an edge, route or marker names a node
	// that was never added.
	ErrUnknownNode = errors.New("unknown node")
	// ErrDuplicateNode is returned when two nodes share a name.
	ErrDuplicateNode = errors.New("duplicate node")
	// ErrInvalidNode is returned for nil nodes or nodes without a name.
	ErrInvalidNode = errors.New("invalid node")
	// ErrUnreachable is returned when a node cannot be reached from the entry.
	ErrUnreachable = errors.New("node unreachable from entry point")
	// ErrInvalidRoute is returned at run time when a router selects a node
	// that is not among its declared targets.
	ErrInvalidRoute = errors.New("router selected an undeclared target")
	// ErrStepLimit is returned when a run exceeds MaxSteps supersteps.
	ErrStepLimit = errors.New("graph step limit exceeded")
)

// Router picks the successors of a node from the merged state after the
// node's superstep. An empty result ends that branch.
type Router func(s *core.HealthState) []string

// Observer is notified around every node execution. Implementations must be
// safe for concurrent use.
type Observer interface {
	NodeStarted(rc *core.RunContext, node string)
	NodeFinished(rc *core.RunContext, node string, d time.Duration, err error)
}

// Options configures a compiled graph.
type Options struct {
	// MaxSteps bounds the supersteps of a run (default 25).
	MaxSteps int
	// Observers are notified around every node execution.
	Observers []Observer
}

type conditional struct {
	router  Router
	targets []string
}

// Builder assembles a graph. Methods are chainable; configuration errors are
// collected and reported by Compile.
type Builder struct {
	name    string
	nodes   map[string]core.Agent
	order   []string
	edges   map[string][]string
	routes  map[string]conditional
	entry   string
	finish  []string
	pending []error
}

// New starts a graph named name.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		nodes:  make(map[string]core.Agent),
		edges:  make(map[string][]string),
		routes: make(map[string]conditional),
	}
}

// AddNode registers an agent under its Name.
func (b *Builder) AddNode(a core.Agent) *Builder {
	if a == nil || a.Name() == "" {
		b.pending = append(b.pending, ErrInvalidNode)
		return b
	}

	name := a.Name()
	if _, ok := b.nodes[name]; ok {
		b.pending = append(b.pending, fmt.Errorf("%w: %s", ErrDuplicateNode, name))
		return b
	}

	b.nodes[name] = a
	b.order = append(b.order, name)

	return b
}

// AddEdge adds a static edge: to runs after from.
func (b *Builder) AddEdge(from, to string) *Builder {
	if !slices.Contains(b.edges[from], to) {
		b.edges[from] = append(b.edges[from], to)
	}

	return b
}

// AddConditionalEdges lets router choose the successors of from among
// targets. A node has at most one router.
func (b *Builder) AddConditionalEdges(from string, router Router, targets ...string) *Builder {
	if router == nil {
		b.pending = append(b.pending, fmt.Errorf("nil router for node %s", from))
		return b
	}

	if _, ok := b.routes[from]; ok {
		b.pending = append(b.pending, fmt.Errorf("node %s already has a router", from))
		return b
	}

	b.routes[from] = conditional{router: router, targets: slices.Clone(targets)}

	return b
}

// SetEntryPoint names the first node.
func (b *Builder) SetEntryPoint(name string) *Builder {
	b.entry = name
	return b
}

// SetFinishPoint marks nodes after which the run ends for that branch.
func (b *Builder) SetFinishPoint(names ...string) *Builder {
	b.finish = append(b.finish, names...)
	return b
}

// Compile validates the graph and freezes it.
func (b *Builder) Compile(optFns ...func(o *Options)) (*Graph, error) {
	opts := Options{MaxSteps: DefaultMaxSteps}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}

	errs := slices.Clone(b.pending)

	known := func(kind, name string) {
		if _, ok := b.nodes[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s %q", ErrUnknownNode, kind, name))
		}
	}

	switch {
	case b.entry == "":
		errs = append(errs, ErrNoEntryPoint)
	default:
		known("entry point", b.entry)
	}

	for _, from := range slices.Sorted(maps.Keys(b.edges)) {
		known("edge source", from)

		for _, to := range b.edges[from] {
			known("edge target", to)
		}
	}

	for _, from := range slices.Sorted(maps.Keys(b.routes)) {
		known("router source", from)

		for _, to := range b.routes[from].targets {
			known("route target", to)
		}
	}

	for _, f := range b.finish {
		known("finish point", f)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("compile graph %s: %w", b.name, err)
	}

	g := &Graph{
		name:   b.name,
		nodes:  maps.Clone(b.nodes),
		order:  slices.Clone(b.order),
		edges:  make(map[string][]string, len(b.edges)),
		routes: maps.Clone(b.routes),
		entry:  b.entry,
		finish: make(map[string]bool, len(b.finish)),
		opts:   opts,
	}

	for k, v := range b.edges {
		g.edges[k] = slices.Clone(v)
	}

	for _, f := range b.finish {
		g.finish[f] = true
	}

	g.reach = g.closure()

	for _, n := range g.order {
		if n != g.entry && !g.reach[g.entry][n] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnreachable, n))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("compile graph %s: %w", b.name, err)
	}

	return g, nil
}

// Graph is a compiled, immutable workflow. It is safe for concurrent runs.
type Graph struct {
	name   string
	nodes  map[string]core.Agent
	order  []string
	edges  map[string][]string
	routes map[string]conditional
	entry  string
	finish map[string]bool
	reach  map[string]map[string]bool
	opts   Options
}

var _ core.Agent = (*Graph)(nil)

// Name implements core.Agent.
func (g *Graph) Name() string { return g.name }

// Nodes returns the node names in registration order.
func (g *Graph) Nodes() []string { return slices.Clone(g.order) }

// Successors returns every node that may follow name, static or routed.
func (g *Graph) Successors(name string) []string {
	out := slices.Clone(g.edges[name])

	for _, t := range g.routes[name].targets {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}

	return out
}

// Reachable reports whether to can run after from.
func (g *Graph) Reachable(from, to string) bool { return g.reach[from][to] }

// Run implements core.Agent. The merged changes of all nodes are staged into
// rc when the run completes successfully.
func (g *Graph) Run(rc *core.RunContext) error {
	start := time.Now()
	cur := rc.Fork("")
	frontier := []string{g.entry}
	steps := 0

	for len(frontier) > 0 {
		if steps >= g.opts.MaxSteps {
			err := fmt.Errorf("graph %s: %w (%d)", g.name, ErrStepLimit, g.opts.MaxSteps)
			logging.LogWorkflowExecution(rc.Logger(), g.name, steps, time.Since(start), err)

			return err
		}

		steps++

		ready, deferred := g.split(frontier)

		changes, err := g.step(cur, ready)
		if err != nil {
			logging.LogWorkflowExecution(rc.Logger(), g.name, steps, time.Since(start), err)
			return err
		}

		for _, name := range ready {
			cur.Stage(changes[name])
		}

		next, err := g.next(cur.State(), ready)
		if err != nil {
			logging.LogWorkflowExecution(rc.Logger(), g.name, steps, time.Since(start), err)
			return err
		}

		frontier = union(deferred, next)
	}

	rc.Stage(cur.Changes())
	logging.LogWorkflowExecution(rc.Logger(), g.name, steps, time.Since(start), nil)

	return nil
}

// split separates the frontier into nodes that run now and nodes that wait
// for a sibling branch still able to reach them.
func (g *Graph) split(frontier []string) (ready, deferred []string) {
	for _, n := range frontier {
		wait := false

		for _, m := range frontier {
			if m != n && g.reach[m][n] && !g.reach[n][m] {
				wait = true
				break
			}
		}

		if wait {
			deferred = append(deferred, n)
		} else {
			ready = append(ready, n)
		}
	}

	return ready, deferred
}

// step runs the ready nodes concurrently and returns each node's changes.
func (g *Graph) step(cur *core.RunContext, ready []string) (map[string]*core.Update, error) {
	eg, ctx := errgroup.WithContext(cur.Context)
	base := cur.WithContext(ctx)
	forks := make([]*core.RunContext, len(ready))

	for i, name := range ready {
		forks[i] = base.Fork(name)

		eg.Go(func() error {
			return g.runNode(forks[i], name)
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	changes := make(map[string]*core.Update, len(ready))
	for i, name := range ready {
		changes[name] = forks[i].Changes()
	}

	return changes, nil
}

func (g *Graph) runNode(rc *core.RunContext, name string) error {
	node := g.nodes[name]

	for _, o := range g.opts.Observers {
		o.NodeStarted(rc, name)
	}

	rc.LogDebug("node started", "graph", g.name, "node", name)

	start := time.Now()
	err := node.Run(rc)

	if err == nil {
		err = rc.Flush(name)
	}

	d := time.Since(start)

	for _, o := range g.opts.Observers {
		o.NodeFinished(rc, name, d, err)
	}

	if err != nil {
		rc.LogError("node failed", "graph", g.name, "node", name, "duration", d, "error", err)
		return fmt.Errorf("graph %s: node %s: %w", g.name, name, err)
	}

	rc.LogDebug("node finished", "graph", g.name, "node", name, "duration", d)

	return nil
}

// next computes the successors of the nodes that just ran.
func (g *Graph) next(s *core.HealthState, ran []string) ([]string, error) {
	var out []string

	for _, n := range ran {
		if g.finish[n] {
			continue
		}

		out = union(out, g.edges[n])

		r, ok := g.routes[n]
		if !ok {
			continue
		}

		picked := r.router(s)
		for _, p := range picked {
			if !slices.Contains(r.targets, p) {
				return nil, fmt.Errorf("graph %s: node %s: %w: %q", g.name, n, ErrInvalidRoute, p)
			}
		}

		out = union(out, picked)
	}

	return out, nil
}

// closure computes transitive reachability over static and routed edges.
func (g *Graph) closure() map[string]map[string]bool {
	reach := make(map[string]map[string]bool, len(g.order))

	for _, start := range g.order {
		seen := map[string]bool{}
		queue := g.Successors(start)

		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]

			if seen[n] {
				continue
			}

			seen[n] = true
			queue = append(queue, g.Successors(n)...)
		}

		reach[start] = seen
	}

	return reach
}

// union returns the sorted set union of a and b.
func union(a, b []string) []string {
	out := slices.Concat(a, b)
	slices.Sort(out)

	return slices.Compact(out)
}
