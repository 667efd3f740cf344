package graph

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TraceEvent names what a span describes.
type TraceEvent string

// Span events. A node or graph span is emitted once with a start event and
// again, as the same span, with its end event.
const (
	TraceEventGraphStart    TraceEvent = "graph_start"
	TraceEventGraphEnd      TraceEvent = "graph_end"
	TraceEventNodeStart     TraceEvent = "node_start"
	TraceEventNodeEnd       TraceEvent = "node_end"
	TraceEventNodeError     TraceEvent = "node_error"
	TraceEventEdgeTraversal TraceEvent = "edge_traversal" // one routing hop, including the final hop to END
)

// TraceSpan is one traced unit of a run: the whole run, a node execution or a
// routing hop.
//
// Spans emitted by a run carry "run_id" and "step" in Metadata. Node spans end
// after the update is merged and routed: State is the merged state, and
// Metadata holds "update" (the updated field names) and "next" (the successor).
type TraceSpan struct {
	ID       string
	ParentID string // enclosing span, empty for the graph span
	Event    TraceEvent

	NodeName string // set on graph and node spans
	FromNode string // set on edge traversals
	ToNode   string // set on edge traversals

	StartTime time.Time
	EndTime   time.Time // zero until the span ends
	Duration  time.Duration

	State    any   // state at the time of the event
	Error    error // node or run failure
	Metadata map[string]any
}

// RunID returns the run identifier recorded in the span metadata.
func (s *TraceSpan) RunID() string {
	id, _ := s.Metadata["run_id"].(string)
	return id
}

// Step returns the step index recorded in the span metadata.
func (s *TraceSpan) Step() int {
	step, _ := s.Metadata["step"].(int)
	return step
}

// TraceHook receives spans as a run emits them.
// Hooks run synchronously on the goroutine executing the graph.
type TraceHook interface {
	// OnEvent receives each span when it starts and again when it ends.
	OnEvent(ctx context.Context, span *TraceSpan)
}

// TraceHookFunc lets a plain function serve as a TraceHook.
type TraceHookFunc func(ctx context.Context, span *TraceSpan)

// OnEvent calls f.
func (f TraceHookFunc) OnEvent(ctx context.Context, span *TraceSpan) {
	f(ctx, span)
}

// Tracer delivers spans to its hooks and, unless created by newHookTracer,
// keeps every span until Clear is called.
type Tracer struct {
	mu     sync.RWMutex
	hooks  []TraceHook
	spans  map[string]*TraceSpan
	retain bool
}

// NewTracer creates a tracer that retains spans for GetSpans.
func NewTracer() *Tracer {
	return &Tracer{
		hooks:  make([]TraceHook, 0),
		spans:  make(map[string]*TraceSpan),
		retain: true,
	}
}

// newHookTracer creates a tracer that only forwards spans to hooks.
func newHookTracer() *Tracer {
	return &Tracer{
		spans: make(map[string]*TraceSpan),
	}
}

// AddHook adds a hook that receives every span from now on.
func (t *Tracer) AddHook(hook TraceHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, hook)
}

// StartSpan opens a span and delivers it to the hooks. Its parent is the span
// stored in ctx, if any.
func (t *Tracer) StartSpan(ctx context.Context, event TraceEvent, nodeName string, state any, metadata map[string]any) *TraceSpan {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	span := &TraceSpan{
		ID:        uuid.NewString(),
		Event:     event,
		NodeName:  nodeName,
		StartTime: time.Now(),
		State:     state,
		Metadata:  metadata,
	}

	if parentSpan := SpanFromContext(ctx); parentSpan != nil {
		span.ParentID = parentSpan.ID
	}

	t.record(span)
	t.notify(ctx, span)
	return span
}

// EndSpan stamps the end time, state and error on span, switches a start
// event to its end or error event and delivers the span again.
func (t *Tracer) EndSpan(ctx context.Context, span *TraceSpan, state any, err error) {
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	span.State = state
	span.Error = err

	if err != nil && span.Event == TraceEventNodeStart {
		span.Event = TraceEventNodeError
	} else if span.Event == TraceEventNodeStart {
		span.Event = TraceEventNodeEnd
	} else if span.Event == TraceEventGraphStart {
		span.Event = TraceEventGraphEnd
	}

	t.notify(ctx, span)
}

// TraceEdgeTraversal emits a zero-length span for a hop from fromNode to toNode.
func (t *Tracer) TraceEdgeTraversal(ctx context.Context, fromNode, toNode string, metadata map[string]any) {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	now := time.Now()
	span := &TraceSpan{
		ID:        uuid.NewString(),
		Event:     TraceEventEdgeTraversal,
		FromNode:  fromNode,
		ToNode:    toNode,
		StartTime: now,
		EndTime:   now,
		Metadata:  metadata,
	}

	if parentSpan := SpanFromContext(ctx); parentSpan != nil {
		span.ParentID = parentSpan.ID
	}

	t.record(span)
	t.notify(ctx, span)
}

func (t *Tracer) record(span *TraceSpan) {
	if !t.retain {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans[span.ID] = span
}

func (t *Tracer) notify(ctx context.Context, span *TraceSpan) {
	t.mu.RLock()
	hooks := make([]TraceHook, len(t.hooks))
	copy(hooks, t.hooks)
	t.mu.RUnlock()

	for _, hook := range hooks {
		hook.OnEvent(ctx, span)
	}
}

// GetSpans returns the retained spans keyed by ID.
func (t *Tracer) GetSpans() map[string]*TraceSpan {
	t.mu.RLock()
	defer t.mu.RUnlock()
	spans := make(map[string]*TraceSpan, len(t.spans))
	for id, s := range t.spans {
		spans[id] = s
	}
	return spans
}

// Clear drops the retained spans.
func (t *Tracer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = make(map[string]*TraceSpan)
}

type contextKey string

const spanContextKey contextKey = "stategraph_span"

// ContextWithSpan returns a copy of ctx that carries span.
func ContextWithSpan(ctx context.Context, span *TraceSpan) context.Context {
	return context.WithValue(ctx, spanContextKey, span)
}

// SpanFromContext returns the span carried by ctx, or nil.
func SpanFromContext(ctx context.Context) *TraceSpan {
	if span, ok := ctx.Value(spanContextKey).(*TraceSpan); ok {
		return span
	}
	return nil
}
