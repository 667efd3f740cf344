package graph

import (
	"context"
	"errors"
)

// END is a special constant used to represent the end node in the graph.
// Routing to END terminates the run.
const END = "END"

var (
	// ErrEntryPointNotSet is returned by Invoke when the builder had no entry point.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrEntryPointNotFound is recorded when the entry point is not a registered node.
	ErrEntryPointNotFound = errors.New("entry point not found")
)

// Update is a partial state update returned by a node.
// Keys are the state's field names (their json tags); absent keys leave the
// corresponding fields unchanged.
type Update map[string]any

// NodeFunc is the body of a node. It reads the current state and returns a
// partial update. A nil update leaves the state unchanged.
type NodeFunc[S any] func(ctx context.Context, state S) (Update, error)

// Router picks the route key of a conditional edge from the merged state.
// Routers should be pure: the same state always yields the same key.
type Router[S any] func(ctx context.Context, state S) string

// Node represents a node in the graph.
type Node[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function is the node body.
	Function NodeFunc[S]
}

// Edge represents the outgoing edge entry of a node.
// A fixed edge has To set; a conditional edge has Router and Branches set.
type Edge[S any] struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the fixed successor (a node name or END).
	To string

	// Router computes the route key of a conditional edge.
	Router Router[S]

	// Branches maps route keys to successors (node names or END).
	Branches map[string]string
}

// IsConditional reports whether the edge is resolved through a router.
func (e Edge[S]) IsConditional() bool {
	return e.Router != nil
}

// Targets returns every successor the edge can lead to, in branch-key order
// for conditional edges.
func (e Edge[S]) Targets() []string {
	if !e.IsConditional() {
		return []string{e.To}
	}
	keys := sortedKeys(e.Branches)
	targets := make([]string, 0, len(keys))
	for _, k := range keys {
		targets = append(targets, e.Branches[k])
	}
	return targets
}
