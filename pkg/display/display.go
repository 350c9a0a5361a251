// Package display renders run results for the terminal.
package display

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/drifthouse/rig/pkg/types"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	driftStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	idStyle      = lipgloss.NewStyle().Bold(true)
)

func statusStyle(s types.Status) lipgloss.Style {
	switch s {
	case types.StatusOK:
		return okStyle
	case types.StatusMissing:
		return missingStyle
	case types.StatusDrift:
		return driftStyle
	default:
		return errorStyle
	}
}

// Results prints one line per reconciliation result.
func Results(w io.Writer, results []types.ReconciliationResult) {
	for _, r := range results {
		line := fmt.Sprintf("%s %s",
			statusStyle(r.Status).Render(fmt.Sprintf("%-8s", r.Status)),
			idStyle.Render(r.ID))
		if r.Observed != "" {
			line += " " + r.Observed
		}
		if r.Note != "" {
			line += " " + dimStyle.Render(r.Note)
		}
		fmt.Fprintln(w, line)
	}
}

// ResultsJSON prints the results as a JSON array, for --json mode.
func ResultsJSON(w io.Writer, results []types.ReconciliationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// Links prints one line per link outcome.
func Links(w io.Writer, outcomes []types.LinkOutcome) {
	for _, o := range outcomes {
		style := okStyle
		switch o.Action {
		case types.LinkFailed:
			style = errorStyle
		case types.LinkSkippedExisting:
			style = driftStyle
		case types.LinkUnchanged:
			style = dimStyle
		}
		line := fmt.Sprintf("%s %s -> %s",
			style.Render(fmt.Sprintf("%-17s", o.Action)),
			idStyle.Render(o.Target), o.Source)
		if o.Note != "" {
			line += " " + dimStyle.Render(o.Note)
		}
		fmt.Fprintln(w, line)
	}
}

// Reverted prints one line per reverted item.
func Reverted(w io.Writer, items []types.RevertedItem, dryRun bool) {
	prefix := ""
	if dryRun {
		prefix = dimStyle.Render("would ")
	}
	for _, item := range items {
		style := okStyle
		if !item.Success {
			style = errorStyle
		}
		line := fmt.Sprintf("%s%s %s", prefix,
			style.Render(fmt.Sprintf("%-8s", item.Type)),
			item.Path)
		if item.Error != "" {
			line += " " + dimStyle.Render(item.Error)
		}
		fmt.Fprintln(w, line)
	}
}
