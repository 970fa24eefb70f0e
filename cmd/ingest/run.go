package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"coach-ai/internal/bootstrap"
)

var (
	flagDocs     string
	flagLedger   string
	flagMarkdown bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest new documents from the docs folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, err := bootstrap.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = svc.Close()
		}()

		pipeline, err := svc.NewPipeline(bootstrap.IngestOptions{
			DocsDir:    flagDocs,
			LedgerPath: flagLedger,
			Markdown:   flagMarkdown,
		})
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := pipeline.Run(ctx)
		if result != nil {
			out := cmd.OutOrStdout()
			if result.Loaded == 0 {
				fmt.Fprintln(out, "No new documents to process.")
			}
			fmt.Fprintf(out, "Done in %s\n", time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(out, "  Files:   %d scanned, %d new, %d skipped, %d failed\n",
				result.Scanned, result.Loaded, result.Skipped, result.Failed)
			fmt.Fprintf(out, "  Chunks:  %d added (store %d -> %d)\n",
				result.Chunks, result.Before, result.After)
			if result.Chunks > 0 {
				fmt.Fprintf(out, "  Lengths: min %d, mean %.0f, p95 %d, max %d\n",
					result.Stats.Min, result.Stats.Mean, result.Stats.P95, result.Stats.Max)
			}
		}
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().StringVar(&flagDocs, "docs", "", "folder of documents to ingest (default DOCS_DIR)")
		c.Flags().StringVar(&flagLedger, "ledger", "", "processed files ledger (default LEDGER_PATH)")
		c.Flags().BoolVar(&flagMarkdown, "markdown", false, "also ingest .md files")
	}
	rootCmd.AddCommand(runCmd)
}
