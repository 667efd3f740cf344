package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/smallnest/stategraph/log"
)

// Graph is a validated, immutable graph produced by Builder.Build.
// A Graph holds no run state and can serve concurrent runs.
type Graph[S any] struct {
	nodes      map[string]Node[S]
	order      []string
	edges      map[string]Edge[S]
	edgeOrder  []string
	finish     map[string]bool
	entryPoint string
	schema     StateSchema[S]
	maxSteps   int
	logger     log.Logger
	tracer     *Tracer
}

// EntryPoint returns the entry point configured on the builder, if any.
func (g *Graph[S]) EntryPoint() string {
	return g.entryPoint
}

// MaxSteps returns the step limit of each run.
func (g *Graph[S]) MaxSteps() int {
	return g.maxSteps
}

// Nodes returns the registered nodes in registration order.
func (g *Graph[S]) Nodes() []Node[S] {
	nodes := make([]Node[S], 0, len(g.order))
	for _, name := range g.order {
		nodes = append(nodes, g.nodes[name])
	}
	return nodes
}

// Edges returns the outgoing edge entries in the order they were added.
func (g *Graph[S]) Edges() []Edge[S] {
	edges := make([]Edge[S], 0, len(g.edgeOrder))
	for _, from := range g.edgeOrder {
		edges = append(edges, g.edges[from])
	}
	return edges
}

// FinishPoints returns the nodes marked as sinks, sorted by name.
func (g *Graph[S]) FinishPoints() []string {
	return sortedKeys(g.finish)
}

// Tracer returns the attached tracer, or nil.
func (g *Graph[S]) Tracer() *Tracer {
	return g.tracer
}

// Invoke runs the graph from its configured entry point.
func (g *Graph[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	if g.entryPoint == "" {
		return initialState, ErrEntryPointNotSet
	}
	return g.Run(ctx, g.entryPoint, initialState)
}

// Run executes the graph from entry until a route reaches END or a finish
// point without edges is done.
//
// Each step runs one node, merges its update into the state, then resolves the
// node's edge; conditional routers see the merged state. The context is checked
// once per step. On failure the last-known state is returned with the error.
func (g *Graph[S]) Run(ctx context.Context, entry string, initialState S) (S, error) {
	r := &run[S]{
		graph: g,
		id:    uuid.NewString(),
		state: initialState,
	}
	return r.execute(ctx, entry)
}

// run holds the state of one execution.
type run[S any] struct {
	graph *Graph[S]
	id    string
	state S
	step  int
	span  *TraceSpan
}

func (r *run[S]) meta() map[string]any {
	return map[string]any{
		"run_id": r.id,
		"step":   r.step,
	}
}

func (r *run[S]) execute(ctx context.Context, entry string) (S, error) {
	g := r.graph
	g.logger.Debug("run %s: start at %s", r.id, entry)

	if g.tracer != nil {
		r.span = g.tracer.StartSpan(ctx, TraceEventGraphStart, entry, r.state, r.meta())
		ctx = ContextWithSpan(ctx, r.span)
	}

	current := entry
	last := ""
	for {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, &CancelledError{Node: current, Steps: r.step, Err: err})
		}
		if r.step >= g.maxSteps {
			return r.fail(ctx, &StepLimitExceededError{Limit: g.maxSteps, LastNode: last, State: r.state})
		}

		node, ok := g.nodes[current]
		if !ok {
			return r.fail(ctx, &UnknownNodeError{Node: current})
		}

		next, done, err := r.runStep(ctx, node)
		if err != nil {
			return r.fail(ctx, err)
		}

		g.logger.Debug("run %s: step %d %s -> %s", r.id, r.step, current, next)
		if g.tracer != nil {
			g.tracer.TraceEdgeTraversal(ctx, current, next, r.meta())
		}
		if done {
			break
		}

		last = current
		current = next
		r.step++
	}

	g.logger.Debug("run %s: finished after %d steps", r.id, r.step+1)
	if g.tracer != nil {
		g.tracer.EndSpan(ctx, r.span, r.state, nil)
	}
	return r.state, nil
}

// runStep executes one node, merges its update and resolves the successor.
// done is true when the run terminates after this node.
func (r *run[S]) runStep(ctx context.Context, node Node[S]) (next string, done bool, err error) {
	g := r.graph

	var span *TraceSpan
	if g.tracer != nil {
		span = g.tracer.StartSpan(ctx, TraceEventNodeStart, node.Name, r.state, r.meta())
		defer func() {
			if next != "" {
				span.Metadata["next"] = next
			}
			g.tracer.EndSpan(ctx, span, r.state, err)
		}()
		ctx = ContextWithSpan(ctx, span)
	}

	update, err := callNode(ctx, node, r.state)
	if err != nil {
		return "", false, &NodeError{Node: node.Name, Err: err}
	}
	if span != nil && len(update) > 0 {
		span.Metadata["update"] = sortedKeys(map[string]any(update))
	}

	merged, err := g.schema.Update(r.state, update)
	if err != nil {
		return "", false, &MergeError{Node: node.Name, Err: err}
	}
	r.state = merged

	edge, ok := g.edges[node.Name]
	if !ok {
		// Build guarantees a node without edges is a finish point.
		return END, true, nil
	}
	if !edge.IsConditional() {
		return edge.To, edge.To == END, nil
	}

	key, err := callRouter(ctx, edge.Router, r.state)
	if err != nil {
		return "", false, &NodeError{Node: node.Name, Err: err}
	}
	target, ok := edge.Branches[key]
	if !ok {
		return "", false, &UnmappedRouteError{Node: node.Name, Key: key}
	}
	return target, target == END, nil
}

func (r *run[S]) fail(ctx context.Context, err error) (S, error) {
	g := r.graph
	g.logger.Warn("run %s: stopped at step %d: %v", r.id, r.step, err)
	if g.tracer != nil {
		g.tracer.EndSpan(ctx, r.span, r.state, err)
	}
	return r.state, err
}

func callNode[S any](ctx context.Context, node Node[S], state S) (update Update, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return node.Function(ctx, state)
}

func callRouter[S any](ctx context.Context, router Router[S], state S) (key string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("router panic: %v", p)
		}
	}()
	return router(ctx, state), nil
}
