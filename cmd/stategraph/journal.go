package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallnest/stategraph/config"
)

// journalCmd represents the journal command
var journalCmd = &cobra.Command{
	Use:   "journal <run-id>",
	Short: "Show the recorded steps of a run",
	Long: `Reads the step journal of a finished or failed run from the configured
redis, sqlite or postgres backend and prints one row per step.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		switch cfg.Journal.Backend {
		case "", config.JournalNone, config.JournalMemory:
			return &configError{errors.New("journal: a redis, sqlite or postgres backend is required")}
		}

		journal, closeJournal, err := openJournal(cmd.Context(), cfg.Journal)
		if err != nil {
			return err
		}
		defer closeJournal()

		records, err := journal.List(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("no steps recorded for run %s", args[0])
		}

		fmt.Fprintln(cmd.OutOrStdout(), journalTable(records))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().String("journal", "", "Step journal backend (redis, sqlite, postgres)")
}
