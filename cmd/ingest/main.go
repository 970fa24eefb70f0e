package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"coach-ai/internal/bootstrap"
	"coach-ai/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "ingest",
	Short:         "Load PDF guides into the coach vector store",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(cmd, args)
	},
}

// loadConfig loads configuration and installs the process logger on stderr,
// leaving stdout for the command summary.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.SetDefault(bootstrap.NewLogger(cfg, os.Stderr))
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
