// Package retention removes reports and history entries past the retention
// horizon.
package retention

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eivindh/finnscan/internal/history"
	"github.com/eivindh/finnscan/internal/report"
	"github.com/eivindh/finnscan/internal/storage"
)

// DefaultRetentionDays is how long reports and history entries are kept.
const DefaultRetentionDays = 10

// Stats summarizes one cleanup pass.
type Stats struct {
	DeletedReports int
	PurgedEntries  int
}

// Cleanup deletes reports dated before the retention horizon, purges stale
// history entries and refreshes the reports index.
func Cleanup(ctx context.Context, blob storage.Store, hist *history.Store, days int) (Stats, error) {
	return CleanupAt(ctx, blob, hist, days, time.Now())
}

// CleanupAt is Cleanup with an explicit reference time. Per-item failures
// are logged and skipped so one bad key cannot block the pass.
func CleanupAt(ctx context.Context, blob storage.Store, hist *history.Store, days int, now time.Time) (Stats, error) {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	cutoff := now.AddDate(0, 0, -days)
	fmt.Printf("\nCleaning up data older than %d days...\n", days)

	var stats Stats

	keys, err := blob.List(ctx, storage.ReportPrefix)
	if err != nil {
		return stats, fmt.Errorf("failed to list reports: %w", err)
	}

	for _, key := range keys {
		filename := key[strings.LastIndex(key, "/")+1:]
		date, err := report.ParseFilenameDate(filename)
		if err != nil {
			continue
		}
		if !date.Before(cutoff) {
			continue
		}
		if err := blob.Delete(ctx, key); err != nil {
			fmt.Printf("Warning: failed to delete old report %s: %v\n", filename, err)
			continue
		}
		stats.DeletedReports++
		fmt.Printf("  Deleted old report: %s\n", filename)
	}

	purged, err := hist.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		fmt.Printf("Warning: failed to purge history: %v\n", err)
	}
	stats.PurgedEntries = purged
	if purged > 0 {
		fmt.Printf("  Purged %d old history entries\n", purged)
	}

	if err := report.UpdateIndex(ctx, blob); err != nil {
		fmt.Printf("Warning: failed to refresh reports index: %v\n", err)
	}

	return stats, nil
}
