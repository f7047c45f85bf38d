package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eivindh/finnscan/internal/config"
	"github.com/eivindh/finnscan/internal/history"
	"github.com/eivindh/finnscan/internal/report"
	"github.com/eivindh/finnscan/internal/storage"
	"github.com/eivindh/finnscan/internal/types"
)

var reportDate string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-render the report for a date from history",
	Long:  `Rebuild the markdown report for a given date from the analyzed-jobs history and save it under that date's report key.`,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Date to render (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	date := time.Now()
	if reportDate != "" {
		parsed, err := time.Parse("2006-01-02", reportDate)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", reportDate, err)
		}
		date = parsed
	}
	day := date.Format(history.DateFormat)

	_, blob, err := openStore(ctx)
	if err != nil {
		return err
	}

	raw, err := blob.Get(ctx, storage.KeyProfiles)
	if err == storage.ErrNotFound {
		return fmt.Errorf("no search profiles configured")
	}
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}
	profiles, err := config.ParseProfiles(raw)
	if err != nil {
		return fmt.Errorf("invalid profiles config: %w", err)
	}

	hist, err := history.Load(ctx, blob)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	var listings []types.Listing
	for profileID, entries := range hist.All() {
		p := profiles.Get(profileID)
		if p == nil {
			continue
		}
		for id, e := range entries {
			if e.AnalyzedDate != day {
				continue
			}
			listings = append(listings, types.Listing{
				ID:          id,
				ProfileID:   profileID,
				ProfileName: p.DisplayName(),
				Title:       e.Title,
				Company:     e.Company,
				Location:    e.Location,
				URL:         e.URL,
				Score:       e.Score,
				Rationale:   e.Rationale,
				Status:      string(e.Status),
			})
		}
	}

	if len(listings) == 0 {
		return fmt.Errorf("no analyzed jobs in history for %s", day)
	}

	md := report.Generate(listings, profiles.Enabled(), date)
	key, err := report.Save(ctx, blob, md, date)
	if err != nil {
		return err
	}

	fmt.Printf("Report saved: %s (%d listings)\n", key, len(listings))
	return nil
}
