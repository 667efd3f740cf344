package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smallnest/stategraph/config"
	"github.com/smallnest/stategraph/graph"
	"github.com/smallnest/stategraph/llm"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Research a topic and write an article about it",
	Long: `Runs the research, writer and supervisor agents on the topic until the article
reaches the word threshold, then prints the article and the number of drafts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		topic := ""
		if len(args) > 0 {
			topic = args[0]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runWorkflow(ctx, cfg, nil, topic, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("provider", "", "LLM provider (ollama, openai)")
	runCmd.Flags().String("model", "", "Model name")
	runCmd.Flags().Int("max-steps", 0, "Maximum node executions per run")
	runCmd.Flags().Int("word-threshold", 0, "Minimum article length in words")
	runCmd.Flags().String("journal", "", "Step journal backend (none, memory, redis, sqlite, postgres)")
	runCmd.Flags().String("metrics-addr", "", "Serve /metrics and /graph on this address during the run")
	runCmd.Flags().StringP("output", "o", "", "Write the workflow diagram to this file before running")
}

// runWorkflow runs the article workflow once and prints the result to out.
func runWorkflow(ctx context.Context, cfg *config.Config, generator llm.Generator, topic string, out io.Writer) error {
	a, err := newApp(ctx, cfg, generator)
	if err != nil {
		return err
	}
	defer a.Close()

	if path := cfg.Graph.Output; path != "" {
		if err := graph.NewExporter(a.workflow).WriteFile(path); err != nil {
			return err
		}
		fmt.Fprintln(out, noteStyle.Render("[System] workflow diagram saved to "+path))
	}

	if addr := cfg.Metrics.Addr; addr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- serveHTTP(srvCtx, addr, newRouter(a))
		}()
		defer func() {
			cancel()
			if err := <-done; err != nil {
				a.logger.Warn("diagnostics server: %v", err)
			}
		}()
		a.logger.Info("serving diagnostics on %s", addr)
	}

	fmt.Fprintf(out, "%s\n\n", banner("MULTI-AGENT SYSTEM START"))

	res, err := a.run(ctx, topic)
	if err != nil {
		return err
	}

	printArticle(out, res)
	return nil
}
