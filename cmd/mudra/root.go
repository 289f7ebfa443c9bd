package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
)

// Version is the application version.
const Version = "0.1.0"

var (
	configPath string
	logLevel   string

	// cfg is loaded once in the root pre-run and shared by subcommands.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "mudra",
	Short:         "Hand landmark recorder for gesture training data",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded

		logging.Init(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		return nil
	},
}

// Execute runs the root command with a context cancelled on SIGINT or
// SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		err := xerrors.New(err)
		slog.ErrorContext(ctx, "command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}
