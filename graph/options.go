package graph

import "github.com/smallnest/stategraph/log"

// DefaultMaxSteps is the step limit used when WithMaxSteps is not given.
const DefaultMaxSteps = 1000

type options struct {
	maxSteps int
	logger   log.Logger
	tracer   *Tracer
	hooks    []TraceHook
}

func defaultOptions() options {
	return options{
		maxSteps: DefaultMaxSteps,
		logger:   log.GetDefaultLogger(),
	}
}

// Option configures a Graph at Build time.
type Option func(*options)

// WithMaxSteps sets the maximum number of node executions per run.
// Values below one are rejected by Build.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}

// WithLogger sets the logger used for run and transition messages.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = &log.NoOpLogger{}
		}
		o.logger = logger
	}
}

// WithTracer attaches a tracer that receives graph, node and edge spans.
func WithTracer(tracer *Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithHooks registers trace hooks. Hooks are added to the tracer given with
// WithTracer, if any; otherwise Build creates a tracer that forwards spans to
// the hooks without retaining them.
func WithHooks(hooks ...TraceHook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks...)
	}
}
