package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smallnest/stategraph/config"
	"github.com/smallnest/stategraph/graph"
	"github.com/smallnest/stategraph/llm"
	"github.com/smallnest/stategraph/log"
)

var rootCmd = &cobra.Command{
	Use:   "stategraph",
	Short: "stategraph runs a research and writing agent workflow",
	Long: `stategraph drives a small state graph of agents: a researcher collects notes,
a writer drafts an article and a supervisor routes between them until the draft
is long enough.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		exitWithError(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error, none)")
}

// loadConfig reads the config file, applies the environment and the
// command's flags, validates the result and installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, &configError{err}
	}

	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, &configError{err}
	}

	log.SetDefaultLogger(log.NewDefaultLogger(cfg.LogLevel()))
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if changed("provider") {
		cfg.LLM.Provider, _ = flags.GetString("provider")
	}
	if changed("model") {
		cfg.LLM.Model, _ = flags.GetString("model")
	}
	if changed("max-steps") {
		cfg.Workflow.MaxSteps, _ = flags.GetInt("max-steps")
	}
	if changed("word-threshold") {
		cfg.Workflow.WordThreshold, _ = flags.GetInt("word-threshold")
	}
	if changed("journal") {
		cfg.Journal.Backend, _ = flags.GetString("journal")
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}
	if changed("output") {
		cfg.Graph.Output, _ = flags.GetString("output")
	}
}

// configError marks failures to load or validate settings.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }

func (e *configError) Unwrap() error { return e.err }

// errorKind names the error for the "<kind>: <message>" line on stderr.
// Generation failures keep their own kind even when wrapped by a node.
func errorKind(err error) string {
	var (
		cfgErr *configError
		genErr *llm.GenerationError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "ConfigurationError"
	case errors.As(err, &genErr):
		return "GenerationError"
	default:
		return graph.ErrorKind(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", errorKind(err), err)
	os.Exit(1)
}
