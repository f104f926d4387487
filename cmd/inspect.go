package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sagerock/google-drive-to-qdrant/internal/app"
	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

var (
	detailed     bool
	inspectLimit int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [collection]",
	Short: "Show point counts and the documents stored in each collection",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&detailed, "detailed", false, "list chunks per document")
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", vector.DefaultInspectLimit, "maximum points to sample")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
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
	for _, col := range cols {
		store, err := app.OpenStore(col)
		if err != nil {
			return err
		}
		res, err := vector.Inspect(ctx, store, col.StoreCollection(), inspectLimit)
		_ = store.Close()
		if err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", failStyle.Render("✗"), col.Name, err)
			continue
		}
		writeInspection(out, col.Name, res, detailed)
	}
	return nil
}

func writeInspection(w io.Writer, name string, res vector.Inspection, detailed bool) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (%s)", name, res.Info.Name)))
	fmt.Fprintf(w, "  points:     %d\n", res.Info.PointCount)
	fmt.Fprintf(w, "  dimension:  %d\n", res.Info.Dimension)
	fmt.Fprintf(w, "  documents:  %d", len(res.Documents))
	if int64(res.Sampled) < res.Info.PointCount {
		fmt.Fprint(w, dimStyle.Render(fmt.Sprintf(" (sampled %d points)", res.Sampled)))
	}
	fmt.Fprintln(w)

	if !detailed {
		return
	}
	for _, d := range res.Documents {
		fmt.Fprintf(w, "    %s %s %s\n", pad(fmt.Sprintf("%d", d.Chunks), 6), pad(d.FileName, 40), dimStyle.Render(d.MimeType))
	}
}
