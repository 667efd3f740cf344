package graph

import (
	"fmt"
	"maps"
	"slices"
)

// Builder collects nodes and edges and validates them into an immutable Graph.
//
// The Add methods return structural errors immediately and also retain them,
// so Build reports every problem of the graph in a single ConfigurationError.
//
// Example:
//
//	b := graph.NewBuilder[MyState]()
//	b.AddNode("work", "Do the work", work)
//	b.AddNode("check", "Route on the result", check)
//	b.AddEdge("work", "check")
//	b.AddConditionalEdge("check", route, map[string]string{
//	    "again": "work",
//	    "done":  graph.END,
//	})
//	b.SetEntryPoint("work")
//	g, err := b.Build(graph.WithMaxSteps(50))
type Builder[S any] struct {
	nodes      map[string]Node[S]
	order      []string
	edges      map[string]Edge[S]
	edgeOrder  []string
	finish     map[string]bool
	entryPoint string
	schema     StateSchema[S]
	errs       []error
}

// NewBuilder creates an empty graph builder for state type S.
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{
		nodes:  make(map[string]Node[S]),
		edges:  make(map[string]Edge[S]),
		finish: make(map[string]bool),
	}
}

func (b *Builder[S]) record(err error) error {
	b.errs = append(b.errs, err)
	return err
}

// AddNode registers a node body under a unique name.
func (b *Builder[S]) AddNode(name string, description string, fn NodeFunc[S]) error {
	switch {
	case name == "":
		return b.record(&InvalidNodeError{Node: name, Reason: "empty name"})
	case name == END:
		return b.record(&InvalidNodeError{Node: name, Reason: "name is reserved"})
	case fn == nil:
		return b.record(&InvalidNodeError{Node: name, Reason: "nil function"})
	}
	if _, ok := b.nodes[name]; ok {
		return b.record(&DuplicateNodeError{Node: name})
	}

	b.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
	b.order = append(b.order, name)
	return nil
}

// AddEdge adds a fixed edge that is always taken after from runs.
func (b *Builder[S]) AddEdge(from, to string) error {
	return b.addEdge(Edge[S]{From: from, To: to})
}

// AddConditionalEdge adds an edge resolved after from runs: router is called
// with the merged state and its key selects the successor in branches.
// The set of branch keys is the closed set of keys the router may return.
func (b *Builder[S]) AddConditionalEdge(from string, router Router[S], branches map[string]string) error {
	if router == nil {
		return b.record(&InvalidEdgeError{From: from, Reason: "nil router"})
	}
	if len(branches) == 0 {
		return b.record(&InvalidEdgeError{From: from, Reason: "no branches"})
	}
	if _, ok := branches[""]; ok {
		return b.record(&EmptyRouteKeyError{From: from})
	}
	return b.addEdge(Edge[S]{From: from, Router: router, Branches: maps.Clone(branches)})
}

func (b *Builder[S]) addEdge(edge Edge[S]) error {
	if edge.From == END {
		return b.record(&InvalidEdgeError{From: edge.From, Reason: "END has no outgoing edges"})
	}
	if _, ok := b.edges[edge.From]; ok {
		return b.record(&DuplicateEdgeError{From: edge.From})
	}
	b.edges[edge.From] = edge
	b.edgeOrder = append(b.edgeOrder, edge.From)
	return nil
}

// SetEntryPoint sets the node Invoke starts from.
func (b *Builder[S]) SetEntryPoint(name string) {
	b.entryPoint = name
}

// SetFinishPoint marks a node as a sink: the run ends after it when it has no outgoing edge.
func (b *Builder[S]) SetFinishPoint(name string) {
	b.finish[name] = true
}

// SetSchema overrides the merge policy. The default is NewStructSchema[S]().
func (b *Builder[S]) SetSchema(schema StateSchema[S]) {
	b.schema = schema
}

// Build validates the graph and freezes it. All structural problems, the ones
// recorded by the Add methods included, are returned together.
func (b *Builder[S]) Build(opts ...Option) (*Graph[S], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	errs := slices.Clone(b.errs)
	errs = append(errs, b.validate()...)
	if o.maxSteps <= 0 {
		errs = append(errs, &InvalidOptionError{Option: "max steps", Value: o.maxSteps})
	}

	schema := b.schema
	if schema == nil {
		structSchema := NewStructSchema[S]()
		if err := structSchema.Validate(); err != nil {
			errs = append(errs, err)
		}
		schema = structSchema
	}

	if len(errs) > 0 {
		return nil, &ConfigurationError{Errors: errs}
	}

	tracer := o.tracer
	if len(o.hooks) > 0 {
		if tracer == nil {
			tracer = newHookTracer()
		}
		for _, h := range o.hooks {
			tracer.AddHook(h)
		}
	}

	return &Graph[S]{
		nodes:      maps.Clone(b.nodes),
		order:      slices.Clone(b.order),
		edges:      maps.Clone(b.edges),
		edgeOrder:  slices.Clone(b.edgeOrder),
		finish:     maps.Clone(b.finish),
		entryPoint: b.entryPoint,
		schema:     schema,
		maxSteps:   o.maxSteps,
		logger:     o.logger,
		tracer:     tracer,
	}, nil
}

// validate resolves every edge reference and checks that each non-sink node has an edge.
func (b *Builder[S]) validate() []error {
	var errs []error

	known := func(name string) bool {
		if name == END {
			return true
		}
		_, ok := b.nodes[name]
		return ok
	}

	if b.entryPoint == END || (b.entryPoint != "" && !known(b.entryPoint)) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrEntryPointNotFound, b.entryPoint))
	}

	for _, from := range b.edgeOrder {
		edge := b.edges[from]
		if _, ok := b.nodes[from]; !ok {
			errs = append(errs, &DanglingEdgeError{From: from, Target: from, Source: true})
		}
		if !edge.IsConditional() {
			if !known(edge.To) {
				errs = append(errs, &DanglingEdgeError{From: from, Target: edge.To})
			}
			continue
		}
		for _, key := range sortedKeys(edge.Branches) {
			if target := edge.Branches[key]; !known(target) {
				errs = append(errs, &DanglingEdgeError{From: from, Key: key, Target: target})
			}
		}
	}

	for _, name := range b.order {
		if _, ok := b.edges[name]; !ok && !b.finish[name] {
			errs = append(errs, &MissingEdgeError{Node: name})
		}
	}

	for _, name := range sortedKeys(b.finish) {
		if _, ok := b.nodes[name]; !ok {
			errs = append(errs, &DanglingEdgeError{From: name, Target: name, Source: true})
		}
	}

	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
