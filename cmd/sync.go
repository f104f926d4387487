package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagerock/google-drive-to-qdrant/internal/app"
	"github.com/sagerock/google-drive-to-qdrant/internal/pipeline"
)

var noProgress bool

var syncCmd = &cobra.Command{
	Use:   "sync [collection]",
	Short: "Replace the contents of every configured collection with fresh Drive content",
	Long: `Runs the full pipeline for every configured collection, or only for the
one named by display name or store collection name. Exits non-zero when any
collection fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	cols, err := cfg.Select(collectionArg(args))
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	var opts []pipeline.Option
	if !noProgress && cfg.CollectionConcurrency <= 1 {
		opts = append(opts, pipeline.WithProgress(&barProgress{}))
	}
	p, err := app.NewPipeline(cfg, deps, app.Builder(cfg), opts...)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "starting sync", "collections", len(cols))
	res, err := p.Run(ctx, cols)
	writeReport(os.Stdout, res)
	return err
}
