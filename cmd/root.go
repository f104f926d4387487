// Package cmd implements the drivesync command line.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sagerock/google-drive-to-qdrant/internal/config"
	"github.com/sagerock/google-drive-to-qdrant/internal/logger"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "drivesync",
	Short: "Sync Google Drive folders into vector collections",
	Long: `drivesync walks configured Google Drive folders, extracts text from
documents and images, splits it into chunks, embeds the chunks and replaces
the contents of the target Qdrant or Weaviate collection with them.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override LOG_FORMAT (json, text)")
}

// setup loads configuration and installs the process logger. The returned
// func flushes the log file, if any.
func setup() (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	l, closeLog, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(l)
	return cfg, func() {
		if err := closeLog(); err != nil {
			slog.Warn("failed to close log file", "error", err)
		}
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func collectionArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
