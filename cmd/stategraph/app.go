package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/smallnest/stategraph/config"
	"github.com/smallnest/stategraph/graph"
	"github.com/smallnest/stategraph/llm"
	"github.com/smallnest/stategraph/log"
	"github.com/smallnest/stategraph/metrics"
	"github.com/smallnest/stategraph/prebuilt"
	"github.com/smallnest/stategraph/store"
	"github.com/smallnest/stategraph/store/memory"
	"github.com/smallnest/stategraph/store/postgres"
	"github.com/smallnest/stategraph/store/redis"
	"github.com/smallnest/stategraph/store/sqlite"
)

// app holds everything one process needs to run the article workflow.
type app struct {
	cfg      *config.Config
	logger   log.Logger
	journal  store.Journal
	registry *prometheus.Registry
	workflow *graph.Graph[prebuilt.ArticleState]
	closers  []func()
}

// newApp wires the generator, journal, metrics and workflow. A nil
// generator is created from the config.
func newApp(ctx context.Context, cfg *config.Config, generator llm.Generator) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   log.GetDefaultLogger(),
		registry: prometheus.NewRegistry(),
	}

	if generator == nil {
		var err error
		generator, err = llm.New(cfg.LLMSettings())
		if err != nil {
			return nil, &configError{err}
		}
	}

	journal, closeJournal, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return nil, err
	}
	a.journal = journal
	if closeJournal != nil {
		a.closers = append(a.closers, closeJournal)
	}

	a.registry.MustRegister(collectors.NewGoCollector())
	hooks := []graph.TraceHook{
		metrics.NewCollector(a.registry),
		graph.TraceHookFunc(recordRunID),
	}
	if journal != nil {
		hooks = append(hooks, graph.JournalHook(journal, a.logger))
	}

	a.workflow, err = prebuilt.CreateArticleWorkflow(prebuilt.ArticleConfig{
		Generator:     generator,
		WordThreshold: cfg.Workflow.WordThreshold,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		MaxSteps:      cfg.Workflow.MaxSteps,
		Retry:         cfg.RetryConfig(),
		Logger:        a.logger,
		Hooks:         hooks,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the journal connection.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// runResult is the outcome of one workflow run.
type runResult struct {
	RunID string
	State prebuilt.ArticleState
}

// run executes the workflow for topic. The state is returned on failure too.
func (a *app) run(ctx context.Context, topic string) (runResult, error) {
	if topic == "" {
		topic = a.cfg.Workflow.Topic
	}

	var res runResult
	ctx = context.WithValue(ctx, runIDKey{}, &res.RunID)
	state, err := a.workflow.Invoke(ctx, prebuilt.NewArticleState(topic))
	res.State = state
	return res, err
}

type runIDKey struct{}

// recordRunID copies the run id of a starting run into the slot the caller
// left in the context.
func recordRunID(ctx context.Context, span *graph.TraceSpan) {
	if span.Event != graph.TraceEventGraphStart {
		return
	}
	if slot, ok := ctx.Value(runIDKey{}).(*string); ok {
		*slot = span.RunID()
	}
}

// openJournal connects the configured step journal. Both return values are
// nil for the "none" backend.
func openJournal(ctx context.Context, cfg config.JournalConfig) (store.Journal, func(), error) {
	switch cfg.Backend {
	case "", config.JournalNone:
		return nil, nil, nil
	case config.JournalMemory:
		return memory.NewMemoryJournal(), nil, nil
	case config.JournalRedis:
		j := redis.NewRedisJournal(redis.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL,
		})
		return j, func() { _ = j.Close() }, nil
	case config.JournalSqlite:
		j, err := sqlite.NewSqliteJournal(sqlite.SqliteOptions{Path: cfg.SqlitePath})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite journal: %w", err)
		}
		return j, func() { _ = j.Close() }, nil
	case config.JournalPostgres:
		j, err := postgres.NewPostgresJournal(ctx, postgres.PostgresOptions{ConnString: cfg.PostgresDSN})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres journal: %w", err)
		}
		if err := j.InitSchema(ctx); err != nil {
			j.Close()
			return nil, nil, fmt.Errorf("failed to open postgres journal: %w", err)
		}
		return j, j.Close, nil
	default:
		return nil, nil, &configError{fmt.Errorf("unknown journal backend %q", cfg.Backend)}
	}
}
