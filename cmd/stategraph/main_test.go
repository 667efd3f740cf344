package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/stategraph/config"
	"github.com/smallnest/stategraph/graph"
	"github.com/smallnest/stategraph/llm"
	"github.com/smallnest/stategraph/log"
	"github.com/smallnest/stategraph/store"
	"github.com/smallnest/stategraph/store/memory"
)

func TestMain(m *testing.M) {
	log.SetDefaultLogger(nil)
	os.Exit(m.Run())
}

func stubGenerator(draftWords int) llm.Generator {
	return llm.GeneratorFunc(func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		if strings.HasPrefix(prompt, "Research the topic:") {
			return "- one\n- two\n- three\n- four\n- five", nil
		}
		return strings.TrimSpace(strings.Repeat("word ", draftWords)), nil
	})
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Log.Level = "none"
	cfg.Journal.Backend = config.JournalMemory
	return cfg
}

func newTestApp(t *testing.T, gen llm.Generator) *app {
	t.Helper()
	a, err := newApp(context.Background(), testConfig(), gen)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestErrorKind(t *testing.T) {
	genErr := &llm.GenerationError{Provider: llm.ProviderOllama, Err: errors.New("connection refused")}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config", &configError{errors.New("bad")}, "ConfigurationError"},
		{"generation inside node", &graph.NodeError{Node: "writer", Err: genErr}, "GenerationError"},
		{"node", &graph.NodeError{Node: "writer", Err: errors.New("boom")}, "NodeError"},
		{"step limit", &graph.StepLimitExceededError{Limit: 3}, "StepLimitExceededError"},
		{"cancelled", &graph.CancelledError{Err: context.Canceled}, "CancelledError"},
		{"plain", errors.New("disk full"), "Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorKind(tt.err))
		})
	}
}

func TestOpenJournal(t *testing.T) {
	ctx := context.Background()

	j, closeFn, err := openJournal(ctx, config.JournalConfig{Backend: config.JournalNone})
	require.NoError(t, err)
	assert.Nil(t, j)
	assert.Nil(t, closeFn)

	j, _, err = openJournal(ctx, config.JournalConfig{Backend: config.JournalMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.MemoryJournal{}, j)

	path := filepath.Join(t.TempDir(), "journal.db")
	j, closeFn, err = openJournal(ctx, config.JournalConfig{Backend: config.JournalSqlite, SqlitePath: path})
	require.NoError(t, err)
	require.NotNil(t, j)
	closeFn()
	assert.FileExists(t, path)

	_, _, err = openJournal(ctx, config.JournalConfig{Backend: "etcd"})
	require.Error(t, err)
	assert.Equal(t, "ConfigurationError", errorKind(err))
}

func TestApp_RunRecordsJournal(t *testing.T) {
	a := newTestApp(t, stubGenerator(150))

	res, err := a.run(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, config.Default().Workflow.Topic, res.State.Topic)
	assert.Equal(t, 1, res.State.RevisionCount)

	records, err := a.journal.List(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Len(t, records, 4)

	var nodes []string
	for _, r := range records {
		nodes = append(nodes, r.Node)
	}
	assert.Equal(t, []string{"research", "supervisor", "writer", "supervisor"}, nodes)
	assert.Equal(t, graph.END, records[3].Next)
}

func TestApp_DistinctRunIDs(t *testing.T) {
	a := newTestApp(t, stubGenerator(150))

	first, err := a.run(context.Background(), "first")
	require.NoError(t, err)
	second, err := a.run(context.Background(), "second")
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunWorkflow(t *testing.T) {
	cfg := testConfig()
	cfg.Graph.Output = filepath.Join(t.TempDir(), "architecture.dot")

	var out bytes.Buffer
	err := runWorkflow(context.Background(), cfg, stubGenerator(150), "Procedural quests", &out)
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "MULTI-AGENT SYSTEM START")
	assert.Contains(t, output, "FINAL ARTICLE")
	assert.Contains(t, output, "Revisions: 1")
	assert.Contains(t, output, "Run completed successfully")
	assert.Contains(t, output, "workflow diagram saved to")

	diagram, err := os.ReadFile(cfg.Graph.Output)
	require.NoError(t, err)
	assert.Contains(t, string(diagram), "digraph G {")
}

func TestRunWorkflow_Rewrite(t *testing.T) {
	calls := 0
	gen := llm.GeneratorFunc(func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		if strings.HasPrefix(prompt, "Research the topic:") {
			return "- note", nil
		}
		calls++
		if calls == 1 {
			return strings.TrimSpace(strings.Repeat("word ", 10)), nil
		}
		return strings.TrimSpace(strings.Repeat("word ", 150)), nil
	})

	var out bytes.Buffer
	require.NoError(t, runWorkflow(context.Background(), testConfig(), gen, "", &out))
	assert.Contains(t, out.String(), "Revisions: 2")
	assert.Equal(t, 2, calls)
}

func TestRunWorkflow_GenerationError(t *testing.T) {
	gen := llm.GeneratorFunc(func(context.Context, string, llm.Options) (string, error) {
		return "", &llm.GenerationError{Provider: llm.ProviderOllama, Err: errors.New("connection refused")}
	})

	var out bytes.Buffer
	err := runWorkflow(context.Background(), testConfig(), gen, "", &out)
	require.Error(t, err)
	assert.Equal(t, "GenerationError", errorKind(err))
	assert.NotContains(t, out.String(), "FINAL ARTICLE")
}

func TestRunWorkflow_StepLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.MaxSteps = 5

	err := runWorkflow(context.Background(), cfg, stubGenerator(10), "", &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, "StepLimitExceededError", errorKind(err))
}

func TestRouter_Runs(t *testing.T) {
	a := newTestApp(t, stubGenerator(150))
	srv := httptest.NewServer(newRouter(a))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/runs", "application/json", strings.NewReader(`{"topic":"Racing AI"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run runResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, "Racing AI", run.Topic)
	assert.Equal(t, 1, run.RevisionCount)
	assert.Len(t, run.Notes, 5)
	require.NotEmpty(t, run.RunID)

	steps, err := http.Get(srv.URL + "/runs/" + run.RunID)
	require.NoError(t, err)
	defer steps.Body.Close()
	require.Equal(t, http.StatusOK, steps.StatusCode)

	var body struct {
		Steps []*store.StepRecord `json:"steps"`
	}
	require.NoError(t, json.NewDecoder(steps.Body).Decode(&body))
	assert.Len(t, body.Steps, 4)

	missing, err := http.Get(srv.URL + "/runs/no-such-run")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestRouter_RunFailure(t *testing.T) {
	gen := llm.GeneratorFunc(func(context.Context, string, llm.Options) (string, error) {
		return "", &llm.GenerationError{Provider: llm.ProviderOpenAI, Err: errors.New("rate limited")}
	})
	a := newTestApp(t, gen)

	rec := httptest.NewRecorder()
	newRouter(a).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var run runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "GenerationError", run.ErrorKind)
	assert.Contains(t, run.Error, "rate limited")
}

func TestRouter_Graph(t *testing.T) {
	router := newRouter(newTestApp(t, stubGenerator(150)))

	tests := []struct {
		query    string
		status   int
		contains string
	}{
		{"", http.StatusOK, "flowchart TD"},
		{"?format=dot", http.StatusOK, "digraph G {"},
		{"?format=ascii", http.StatusOK, "Graph Execution Flow:"},
		{"?format=svg", http.StatusBadRequest, "unknown format"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graph"+tt.query, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	a := newTestApp(t, stubGenerator(150))
	_, err := a.run(context.Background(), "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newRouter(a).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `stategraph_runs_total{outcome="success"} 1`)
	assert.Contains(t, rec.Body.String(), "stategraph_node_executions_total")
}

func TestRouter_JournalDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Journal.Backend = config.JournalNone
	a, err := newApp(context.Background(), cfg, stubGenerator(150))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newRouter(a).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplyFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("max-steps", 0, "")
	cmd.Flags().String("journal", "", "")
	cmd.Flags().String("model", "", "")
	require.NoError(t, cmd.Flags().Set("max-steps", "7"))
	require.NoError(t, cmd.Flags().Set("journal", "sqlite"))

	cfg := config.Default()
	applyFlags(cmd, cfg)

	assert.Equal(t, 7, cfg.Workflow.MaxSteps)
	assert.Equal(t, config.JournalSqlite, cfg.Journal.Backend)
	assert.Equal(t, config.Default().LLM.Model, cfg.LLM.Model)
}

func TestJournalTable(t *testing.T) {
	out := journalTable([]*store.StepRecord{
		{Step: 0, Node: "research", Next: "supervisor", Updated: []string{"notes"}},
		{Step: 1, Node: "supervisor", Next: "writer", Error: ""},
	})

	assert.Contains(t, out, "STEP")
	assert.Contains(t, out, "research")
	assert.Contains(t, out, "notes")
}
