package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/loqalabs/loqa-speak/internal/config"
	"github.com/loqalabs/loqa-speak/internal/voices"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "loqa-speak",
		Short:         "Type text, pick a voice and download the synthesized speech as a wav file",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	root.AddCommand(
		newRunCmd(&configPath),
		newVoicesCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version and exit",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the interactive downloader",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runShell(cmd.Context(), cfg, newLogger(cfg.Telemetry.LogLevel))
		},
	}
}

func newVoicesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the available voices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			table := voices.WithOverrides(cfg.Voices)
			for _, id := range table.IDs() {
				speaker, _ := table.Lookup(id)
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", id, speaker)
			}
			return nil
		},
	}
}

// newLogger writes JSON logs to stderr so they do not interleave with the
// shell prompt on stdout.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
