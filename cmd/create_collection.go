package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagerock/google-drive-to-qdrant/internal/app"
	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

var createCollectionCmd = &cobra.Command{
	Use:   "create-collection [collection]",
	Short: "Create missing vector collections with the configured dimension",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCreateCollection,
}

func init() {
	rootCmd.AddCommand(createCollectionCmd)
}

func runCreateCollection(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	var failed int
	for _, col := range cols {
		target := col.StoreCollection()
		store, err := app.OpenStore(col)
		if err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", failStyle.Render("✗"), col.Name, err)
			failed++
			continue
		}

		info, err := store.Info(ctx, target)
		switch {
		case err == nil && info.Dimension != 0 && info.Dimension != col.EmbeddingDimension:
			fmt.Fprintf(out, "%s %s: exists with dimension %d, configured %d\n",
				warnStyle.Render("!"), target, info.Dimension, col.EmbeddingDimension)
		case err == nil:
			fmt.Fprintf(out, "%s %s: already exists (%d points)\n", okStyle.Render("✓"), target, info.PointCount)
		case errors.Is(err, vector.ErrCollectionNotFound):
			delay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
			if err := app.EnsureCollectionWithRetry(ctx, store, target, col.EmbeddingDimension, cfg.BootstrapRetryAttempts, delay); err != nil {
				fmt.Fprintf(out, "%s %s: %v\n", failStyle.Render("✗"), target, err)
				failed++
			} else {
				fmt.Fprintf(out, "%s %s: created (dimension %d, cosine)\n", okStyle.Render("✓"), target, col.EmbeddingDimension)
			}
		default:
			fmt.Fprintf(out, "%s %s: %v\n", failStyle.Render("✗"), target, err)
			failed++
		}
		_ = store.Close()
	}

	if failed > 0 {
		return fmt.Errorf("%d collections could not be created", failed)
	}
	return nil
}
