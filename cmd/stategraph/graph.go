package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallnest/stategraph/graph"
	"github.com/smallnest/stategraph/llm"
	"github.com/smallnest/stategraph/prebuilt"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow diagram",
	Long: `Prints the workflow as a Mermaid flowchart, or writes it to --output.
Files ending in .dot or .gv get Graphviz DOT, .txt gets an ASCII tree and
anything else gets Mermaid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		generator, err := llm.New(cfg.LLMSettings())
		if err != nil {
			return &configError{err}
		}
		workflow, err := prebuilt.CreateArticleWorkflow(prebuilt.ArticleConfig{
			Generator:     generator,
			WordThreshold: cfg.Workflow.WordThreshold,
			MaxSteps:      cfg.Workflow.MaxSteps,
		})
		if err != nil {
			return err
		}

		exporter := graph.NewExporter(workflow)
		if path := cfg.Graph.Output; path != "" {
			if err := exporter.WriteFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "workflow diagram saved to %s\n", path)
			return nil
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "mermaid":
			fmt.Fprint(cmd.OutOrStdout(), exporter.DrawMermaid())
		case "dot":
			fmt.Fprint(cmd.OutOrStdout(), exporter.DrawDOT())
		case "ascii":
			fmt.Fprint(cmd.OutOrStdout(), exporter.DrawASCII())
		default:
			return fmt.Errorf("unknown format %q", format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringP("output", "o", "", "Write the diagram to this file")
	graphCmd.Flags().String("format", "mermaid", "Format printed to stdout (mermaid, dot, ascii)")
}
