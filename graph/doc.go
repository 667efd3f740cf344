// Package graph provides the state-graph engine behind stategraph.
//
// A graph is a set of named nodes connected by edges. Each node reads a typed
// state value and returns a partial Update; the engine merges the update into
// the state and follows the node's edge to the next node. Edges are either
// fixed or conditional: a conditional edge calls a Router with the merged
// state and maps the returned route key to the successor. Reaching END stops
// the run.
//
// # Building
//
// Graphs are assembled with a Builder and frozen by Build, which validates the
// whole structure at once and reports every problem in a single
// ConfigurationError:
//
//	b := graph.NewBuilder[State]()
//	b.AddNode("research", "Gather notes", research)
//	b.AddNode("writer", "Draft the document", writer)
//	b.AddEdge("research", "writer")
//	b.AddConditionalEdge("writer", route, map[string]string{
//		"rewrite": "writer",
//		"end":     graph.END,
//	})
//	b.SetEntryPoint("research")
//
//	g, err := b.Build(graph.WithMaxSteps(100))
//
// # Running
//
// A built Graph is immutable and can serve concurrent runs. Each run owns its
// state value:
//
//	final, err := g.Invoke(ctx, State{Topic: "..."})
//
// Runs stop with a typed error when a node fails (NodeError), an update does
// not fit the state (MergeError), a route key has no branch
// (UnmappedRouteError), the step limit trips (StepLimitExceededError) or the
// context is done (CancelledError). The state reached so far is returned with
// the error.
//
// # Merging
//
// The default StructSchema matches update keys against the state's json tags.
// Listed fields are replaced and all others keep their value. Unknown keys are
// rejected. A custom merge policy can be installed with Builder.SetSchema.
//
// # Observability
//
// A Tracer receives graph, node and edge spans. Hooks plug into it:
// JournalHook writes one store.StepRecord per executed node, and the metrics
// package exposes Prometheus counters. The Exporter renders the structure as
// Mermaid, DOT or an ASCII tree.
package graph
