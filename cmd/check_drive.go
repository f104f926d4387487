package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sagerock/google-drive-to-qdrant/internal/drive"
)

var checkDriveCmd = &cobra.Command{
	Use:   "check-drive",
	Short: "Verify Drive credentials by listing every configured folder",
	Args:  cobra.NoArgs,
	RunE:  runCheckDrive,
}

func init() {
	rootCmd.AddCommand(checkDriveCmd)
}

func runCheckDrive(cmd *cobra.Command, _ []string) error {
	cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signalContext()
	defer stop()

	client, err := drive.NewClient(ctx, cfg.CredentialsPath,
		drive.WithRateLimiter(drive.NewRateLimiter(cfg.DriveRequestsPerSecond, cfg.DriveBurst)))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var failed int
	for _, col := range cfg.Collections {
		fmt.Fprintln(out, titleStyle.Render(col.Name))
		for _, id := range col.Folders {
			if err := checkFolder(ctx, out, client, id); err != nil {
				fmt.Fprintf(out, "  %s %s: %v\n", failStyle.Render("✗"), id, err)
				failed++
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d folders are not accessible", failed)
	}
	return nil
}

func checkFolder(ctx context.Context, w io.Writer, lister drive.Lister, id string) error {
	name, err := lister.FolderName(ctx, id)
	if err != nil {
		return err
	}
	items, folders, err := lister.ListChildren(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s %s (%s): %d files, %d subfolders\n",
		okStyle.Render("✓"), name, id, len(items), len(folders))
	return nil
}
