package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sagerock/google-drive-to-qdrant/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// writeReport prints one line per collection followed by the run totals.
func writeReport(w io.Writer, res pipeline.RunResult) {
	fmt.Fprintln(w, titleStyle.Render("Sync summary"))
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("run %s, %s", res.RunID, res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))))

	for _, c := range res.Collections {
		if c.OK {
			fmt.Fprintf(w, "%s %s -> %s: %d files, %d chunks, %d points (%s)\n",
				okStyle.Render("✓"), c.Name, c.Target, c.FilesProcessed, c.Chunks, c.PointsAfter, c.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(w, "%s %s -> %s: %s\n", failStyle.Render("✗"), c.Name, c.Target, c.Error)
		}
		for _, warning := range c.Warnings {
			fmt.Fprintf(w, "    %s\n", warnStyle.Render("! "+warning))
		}
	}

	line := fmt.Sprintf("%d succeeded, %d failed, %d files, %d chunks, %d points",
		res.Succeeded, res.Failed, res.Files, res.Chunks, res.Points)
	if res.OK() {
		fmt.Fprintln(w, okStyle.Render(line))
	} else {
		fmt.Fprintln(w, failStyle.Render(line))
	}
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
