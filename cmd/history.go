package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagerock/google-drive-to-qdrant/features/history"
	"github.com/sagerock/google-drive-to-qdrant/internal/app"
)

var (
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded sync runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to list")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show per-collection results of one run")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()
	if !cfg.EnableHistory {
		return errors.New("run history is disabled (set ENABLE_HISTORY=true)")
	}

	ctx, stop := signalContext()
	defer stop()

	db, err := app.OpenDB(ctx, cfg.DSN(), 1, 0)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := history.NewPostgresRepo(db)

	if historyRun != "" {
		cols, err := repo.Collections(ctx, historyRun)
		if err != nil {
			return err
		}
		writeCollectionRuns(cmd.OutOrStdout(), cols)
		return nil
	}

	runs, err := repo.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	writeRuns(cmd.OutOrStdout(), runs)
	return nil
}

func writeRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no runs recorded"))
		return
	}
	for _, r := range runs {
		status := okStyle.Render("ok  ")
		if r.Failed > 0 {
			status = failStyle.Render("fail")
		}
		fmt.Fprintf(w, "%s %s %s %d ok / %d failed, %d chunks, %s\n",
			status, r.ID, r.StartedAt.Local().Format(time.DateTime),
			r.Succeeded, r.Failed, r.Chunks, r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}
}

func writeCollectionRuns(w io.Writer, cols []history.CollectionRun) {
	for _, c := range cols {
		if c.Success {
			fmt.Fprintf(w, "%s %s %s files=%d chunks=%d written=%d\n",
				okStyle.Render("✓"), pad(c.Name, 20), pad(c.Target, 24), c.Files, c.Chunks, c.Written)
		} else {
			fmt.Fprintf(w, "%s %s %s %s\n", failStyle.Render("✗"), pad(c.Name, 20), pad(c.Target, 24), c.Error)
		}
		for _, warning := range c.Warnings {
			fmt.Fprintf(w, "    %s\n", warnStyle.Render("! "+warning))
		}
	}
}
