package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"coach-ai/internal/bootstrap"
	"coach-ai/internal/ledger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger size, vector count and recorded documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		processed, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}

		svc, err := bootstrap.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = svc.Close()
		}()

		count := 0
		exists, err := svc.Store.CollectionExists(ctx, cfg.QdrantCollection)
		if err != nil {
			return fmt.Errorf("failed to check collection: %w", err)
		}
		if exists {
			if count, err = svc.Store.Count(ctx, cfg.QdrantCollection); err != nil {
				return fmt.Errorf("failed to count vectors: %w", err)
			}
		}

		docs, err := svc.Documents.List(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Ledger:     %s (%d files)\n", processed.Path(), processed.Len())
		fmt.Fprintf(out, "Collection: %s on %s (%d vectors)\n", cfg.QdrantCollection, cfg.VectorStore, count)
		if len(docs) == 0 {
			fmt.Fprintln(out, "No documents recorded.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tPAGES\tCHUNKS\tINGESTED")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", d.Filename, d.Pages, d.Chunks, d.IngestedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
