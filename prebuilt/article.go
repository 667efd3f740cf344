package prebuilt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallnest/stategraph/graph"
	"github.com/smallnest/stategraph/llm"
	"github.com/smallnest/stategraph/log"
)

// Node names of the article workflow.
const (
	NodeResearch   = "research"
	NodeWriter     = "writer"
	NodeSupervisor = "supervisor"
)

// Route keys understood by the supervisor.
const (
	RouteWriter  = "writer"
	RouteRewrite = "rewrite"
	RouteEnd     = "end"
)

const (
	// DefaultTopic is the topic used when none is given.
	DefaultTopic = "Games using AI for NPC behavior"

	// DefaultWordThreshold is the minimum article length in words.
	DefaultWordThreshold = 120

	// DefaultTemperature is the sampling temperature of both agents.
	DefaultTemperature = 0.2
)

// ArticleState is the shared state of the article workflow.
type ArticleState struct {
	Topic         string   `json:"topic"`
	Notes         []string `json:"notes"`
	Document      string   `json:"document"`
	RevisionCount int      `json:"revisionCount"`
	RouteKey      string   `json:"routeKey"`
}

// NewArticleState returns the initial state for topic: no notes, no document
// and no revisions.
func NewArticleState(topic string) ArticleState {
	if topic == "" {
		topic = DefaultTopic
	}
	return ArticleState{
		Topic: topic,
		Notes: []string{},
	}
}

// ArticleConfig configures CreateArticleWorkflow.
type ArticleConfig struct {
	// Generator produces research notes and drafts. Required.
	Generator llm.Generator

	// WordThreshold is the minimum accepted word count. Zero uses DefaultWordThreshold.
	WordThreshold int

	// Temperature for every generation call. Zero uses DefaultTemperature.
	Temperature float64

	// MaxTokens limits each completion; zero leaves it to the provider.
	MaxTokens int

	// MaxSteps bounds a run. Zero uses graph.DefaultMaxSteps.
	MaxSteps int

	// Retry, when set, retries failed generation calls inside the node.
	Retry *graph.RetryConfig

	Logger log.Logger
	Tracer *graph.Tracer
	Hooks  []graph.TraceHook
}

// CreateArticleWorkflow builds the research → writer → supervisor workflow.
//
// The research node asks for five bullet points on the topic and stores them
// as notes. The writer drafts an article from the notes and asks for a rewrite
// while the draft is shorter than the word threshold. Both report back to the
// supervisor, which routes on the state's route key:
//
//	research ──▶ supervisor ◀── writer
//	               │  writer, rewrite ──▶ writer
//	               └─ end ──▶ END
func CreateArticleWorkflow(config ArticleConfig) (*graph.Graph[ArticleState], error) {
	if config.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if config.WordThreshold == 0 {
		config.WordThreshold = DefaultWordThreshold
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}
	if config.Logger == nil {
		config.Logger = log.GetDefaultLogger()
	}

	agents := &articleAgents{config: config}

	research := graph.NodeFunc[ArticleState](agents.research)
	writer := graph.NodeFunc[ArticleState](agents.writer)
	if config.Retry != nil {
		research = graph.Retry(research, config.Retry)
		writer = graph.Retry(writer, config.Retry)
	}

	b := graph.NewBuilder[ArticleState]()
	b.AddNode(NodeResearch, "Collect research notes on the topic", research)
	b.AddNode(NodeWriter, "Write the article from the notes", writer)
	b.AddNode(NodeSupervisor, "Route to the next step", agents.supervisor)

	b.AddEdge(NodeResearch, NodeSupervisor)
	b.AddEdge(NodeWriter, NodeSupervisor)
	b.AddConditionalEdge(NodeSupervisor, routeNextStep, map[string]string{
		RouteWriter:  NodeWriter,
		RouteRewrite: NodeWriter,
		RouteEnd:     graph.END,
	})
	b.SetEntryPoint(NodeResearch)

	opts := []graph.Option{graph.WithLogger(config.Logger)}
	if config.MaxSteps != 0 {
		opts = append(opts, graph.WithMaxSteps(config.MaxSteps))
	}
	if config.Tracer != nil {
		opts = append(opts, graph.WithTracer(config.Tracer))
	}
	if len(config.Hooks) > 0 {
		opts = append(opts, graph.WithHooks(config.Hooks...))
	}

	// Add errors are collected by Build.
	return b.Build(opts...)
}

type articleAgents struct {
	config ArticleConfig
}

func (a *articleAgents) options() llm.Options {
	return llm.Options{
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
	}
}

func (a *articleAgents) research(ctx context.Context, state ArticleState) (graph.Update, error) {
	a.config.Logger.Info("[research] collecting notes on %q", state.Topic)

	prompt := fmt.Sprintf("Research the topic: %s\nProvide exactly 5 short bullet points.", state.Topic)
	text, err := a.config.Generator.Generate(ctx, prompt, a.options())
	if err != nil {
		return nil, err
	}

	return graph.Update{
		"notes":    strings.Split(text, "\n"),
		"routeKey": RouteWriter,
	}, nil
}

func (a *articleAgents) writer(ctx context.Context, state ArticleState) (graph.Update, error) {
	a.config.Logger.Info("[writer] writing article, revision %d", state.RevisionCount+1)

	prompt := fmt.Sprintf("Write an article of at least %d words using the following notes:\n\n%s",
		a.config.WordThreshold, strings.Join(state.Notes, "\n"))
	document, err := a.config.Generator.Generate(ctx, prompt, a.options())
	if err != nil {
		return nil, err
	}

	words := WordCount(document)
	a.config.Logger.Info("[writer] word count: %d", words)

	next := RouteEnd
	if words < a.config.WordThreshold {
		a.config.Logger.Info("[writer] too short, rewrite required")
		next = RouteRewrite
	} else {
		a.config.Logger.Info("[writer] accepted")
	}

	return graph.Update{
		"document":      document,
		"revisionCount": state.RevisionCount + 1,
		"routeKey":      next,
	}, nil
}

func (a *articleAgents) supervisor(_ context.Context, state ArticleState) (graph.Update, error) {
	a.config.Logger.Info("[supervisor] Next step → %s", state.RouteKey)
	return nil, nil
}

func routeNextStep(_ context.Context, state ArticleState) string {
	return state.RouteKey
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
