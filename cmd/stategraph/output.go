package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/smallnest/stategraph/store"
)

var (
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	noteStyle    = lipgloss.NewStyle().Faint(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func banner(title string) string {
	return bannerStyle.Render("======= " + title + " =======")
}

func printArticle(w io.Writer, res runResult) {
	fmt.Fprintf(w, "\n%s\n\n", banner("FINAL ARTICLE"))
	fmt.Fprintln(w, res.State.Document)
	fmt.Fprintf(w, "\n%s\n", banner("SUMMARY"))
	if res.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", res.RunID)
	}
	fmt.Fprintf(w, "Revisions: %d\n", res.State.RevisionCount)
	fmt.Fprintln(w, successStyle.Render("Run completed successfully"))
}

// journalTable renders step records one row per step.
func journalTable(records []*store.StepRecord) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STEP", "NODE", "NEXT", "UPDATED", "DURATION", "ERROR").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range records {
		t.Row(
			strconv.Itoa(r.Step),
			r.Node,
			r.Next,
			strings.Join(r.Updated, ","),
			r.Duration.String(),
			r.Error,
		)
	}
	return t.Render()
}
