package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eivindh/finnscan/internal/history"
	"github.com/eivindh/finnscan/internal/retention"
)

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete reports and history entries past the retention horizon",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", retention.DefaultRetentionDays, "Retention horizon in days")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	_, blob, err := openStore(ctx)
	if err != nil {
		return err
	}

	hist, err := history.Load(ctx, blob)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	stats, err := retention.Cleanup(ctx, blob, hist, cleanupDays)
	if err != nil {
		return err
	}

	fmt.Printf("Cleanup complete: %d reports, %d history entries removed\n",
		stats.DeletedReports, stats.PurgedEntries)
	return nil
}
