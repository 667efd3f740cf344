package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smallnest/stategraph/graph"
	"github.com/smallnest/stategraph/store"
)

const shutdownTimeout = 5 * time.Second

// newRouter exposes metrics, the workflow diagram, on-demand runs and the
// step journal over HTTP.
func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	r.Get("/graph", a.handleGraph)
	r.Post("/runs", a.handleRun)
	r.Get("/runs/{runID}", a.handleJournal)

	return r
}

// handleGraph renders the workflow; ?format= selects mermaid (default), dot or ascii.
func (a *app) handleGraph(w http.ResponseWriter, r *http.Request) {
	exporter := graph.NewExporter(a.workflow)

	var body string
	switch r.URL.Query().Get("format") {
	case "", "mermaid":
		body = exporter.DrawMermaid()
	case "dot":
		body = exporter.DrawDOT()
	case "ascii":
		body = exporter.DrawASCII()
	default:
		http.Error(w, "unknown format", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

type runRequest struct {
	Topic string `json:"topic"`
}

type runResponse struct {
	RunID         string   `json:"runId"`
	Topic         string   `json:"topic"`
	Document      string   `json:"document"`
	RevisionCount int      `json:"revisionCount"`
	Notes         []string `json:"notes"`
	Error         string   `json:"error,omitempty"`
	ErrorKind     string   `json:"errorKind,omitempty"`
}

func (a *app) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := a.run(r.Context(), req.Topic)
	resp := runResponse{
		RunID:         res.RunID,
		Topic:         res.State.Topic,
		Document:      res.State.Document,
		RevisionCount: res.State.RevisionCount,
		Notes:         res.State.Notes,
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		resp.ErrorKind = errorKind(err)
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func (a *app) handleJournal(w http.ResponseWriter, r *http.Request) {
	if a.journal == nil {
		http.Error(w, "step journal is disabled", http.StatusNotFound)
		return
	}

	records, err := a.journal.List(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Steps []*store.StepRecord `json:"steps"`
	}{records})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// serveHTTP runs handler on addr until ctx is done, then shuts down gracefully.
func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return err
		}
		return nil
	}
}
