package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError collects every structural problem found while building a graph.
// Each entry can be matched with errors.As, e.g. *DanglingEdgeError.
type ConfigurationError struct {
	Errors []error
}

func (e *ConfigurationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid graph configuration (%d problems): %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *ConfigurationError) Unwrap() []error {
	return e.Errors
}

// DuplicateNodeError is returned when a node name is registered twice.
type DuplicateNodeError struct {
	Node string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %q already registered", e.Node)
}

// InvalidNodeError is returned for a node that can never be registered,
// such as an empty name, the reserved END name or a nil body.
type InvalidNodeError struct {
	Node   string
	Reason string
}

func (e *InvalidNodeError) Error() string {
	return fmt.Sprintf("invalid node %q: %s", e.Node, e.Reason)
}

// DuplicateEdgeError is returned when a node gets a second outgoing edge entry.
type DuplicateEdgeError struct {
	From string
}

func (e *DuplicateEdgeError) Error() string {
	return fmt.Sprintf("node %q already has an outgoing edge", e.From)
}

// DanglingEdgeError names an edge endpoint that is neither a registered node nor END.
type DanglingEdgeError struct {
	From string
	// Key is the route key of the branch, empty for fixed edges.
	Key    string
	Target string
	// Source is set when the unknown name is the edge's origin.
	Source bool
}

func (e *DanglingEdgeError) Error() string {
	if e.Source {
		return fmt.Sprintf("edge source %q: unknown node", e.From)
	}
	if e.Key != "" {
		return fmt.Sprintf("edge %s[%s] -> %q: unknown node", e.From, e.Key, e.Target)
	}
	return fmt.Sprintf("edge %s -> %q: unknown node", e.From, e.Target)
}

// InvalidEdgeError is returned for an edge that can never be valid,
// such as a conditional edge without router or branches.
type InvalidEdgeError struct {
	From   string
	Reason string
}

func (e *InvalidEdgeError) Error() string {
	return fmt.Sprintf("invalid edge from %q: %s", e.From, e.Reason)
}

// MissingEdgeError is returned for a node without an outgoing edge that is not a finish point.
type MissingEdgeError struct {
	Node string
}

func (e *MissingEdgeError) Error() string {
	return fmt.Sprintf("node %q has no outgoing edge and is not a finish point", e.Node)
}

// EmptyRouteKeyError is returned when a conditional edge maps an empty key.
type EmptyRouteKeyError struct {
	From string
}

func (e *EmptyRouteKeyError) Error() string {
	return fmt.Sprintf("conditional edge from %q has an empty route key", e.From)
}

// InvalidOptionError reports a rejected build option.
type InvalidOptionError struct {
	Option string
	Value  any
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %s: %v", e.Option, e.Value)
}

// UnknownNodeError is returned when the executor reaches a name that is not registered.
type UnknownNodeError struct {
	Node string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("node %q not found", e.Node)
}

// UnmappedRouteError is returned when a router yields a key with no branch.
type UnmappedRouteError struct {
	Node string
	Key  string
}

func (e *UnmappedRouteError) Error() string {
	return fmt.Sprintf("route key %q from node %q has no branch", e.Key, e.Node)
}

// StepLimitExceededError is returned when a run executes more nodes than allowed.
// State holds the partial state at the time the limit tripped.
type StepLimitExceededError struct {
	Limit    int
	LastNode string
	State    any
}

func (e *StepLimitExceededError) Error() string {
	return fmt.Sprintf("step limit of %d exceeded after node %q", e.Limit, e.LastNode)
}

// CancelledError is returned when the run context is done between steps.
type CancelledError struct {
	Node  string
	Steps int
	Err   error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("run cancelled before node %q after %d steps: %v", e.Node, e.Steps, e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// NodeError wraps a failure returned (or panicked) by a node body.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("error in node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// MergeError is returned when a node's update cannot be merged into the state.
type MergeError struct {
	Node string
	Err  error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("failed to merge update from node %s: %v", e.Node, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// ErrorKind returns a short name for the outermost graph error in err,
// or "Error" when err is not one of the graph error types.
func ErrorKind(err error) string {
	var (
		configErr    *ConfigurationError
		unknownErr   *UnknownNodeError
		unmappedErr  *UnmappedRouteError
		limitErr     *StepLimitExceededError
		cancelledErr *CancelledError
		nodeErr      *NodeError
		mergeErr     *MergeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &configErr):
		return "ConfigurationError"
	case errors.As(err, &cancelledErr):
		return "CancelledError"
	case errors.As(err, &limitErr):
		return "StepLimitExceededError"
	case errors.As(err, &unknownErr):
		return "UnknownNodeError"
	case errors.As(err, &unmappedErr):
		return "UnmappedRouteError"
	case errors.As(err, &mergeErr):
		return "MergeError"
	case errors.As(err, &nodeErr):
		return "NodeError"
	case errors.Is(err, ErrEntryPointNotSet):
		return "ConfigurationError"
	default:
		return "Error"
	}
}
