// Package report renders the markdown job-match report and maintains the
// reports index used by the dashboard.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/eivindh/finnscan/internal/config"
	"github.com/eivindh/finnscan/internal/storage"
	"github.com/eivindh/finnscan/internal/types"
)

const (
	// FilenameFormat is the date layout embedded in report filenames.
	FilenameFormat = "20060102"

	maxTableTitleLen = 40
)

// Filename returns the report filename for a date.
func Filename(date time.Time) string {
	return fmt.Sprintf("job_report_%s.md", date.Format(FilenameFormat))
}

// Key returns the blob-store key for a date's report.
func Key(date time.Time) string {
	return storage.ReportPrefix + Filename(date)
}

// ParseFilenameDate extracts the date embedded in a report filename.
func ParseFilenameDate(filename string) (time.Time, error) {
	s := strings.TrimSuffix(strings.TrimPrefix(filename, "job_report_"), ".md")
	return time.Parse(FilenameFormat, s)
}

// Generate renders the markdown report for one run. Listings are grouped by
// profile; sections follow the given profile order and contain only listings
// at or above each profile's minimum score, sorted by score descending.
func Generate(listings []types.Listing, profiles []*config.Profile, date time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Daily Job Match Report\n**Date:** %s\n\n---\n\n",
		date.Format("Monday, January 2, 2006"))

	byProfile := make(map[string][]types.Listing)
	for _, l := range listings {
		byProfile[l.ProfileID] = append(byProfile[l.ProfileID], l)
	}

	for _, p := range profiles {
		if !p.IsEnabled() {
			continue
		}

		section := byProfile[p.ID]
		sorted := append([]types.Listing(nil), section...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Score > sorted[j].Score
		})

		var matching []types.Listing
		for _, l := range sorted {
			if l.Score >= p.MinScore() {
				matching = append(matching, l)
			}
		}

		fmt.Fprintf(&b, "## %s\n\n", p.DisplayName())
		b.WriteString("| Score | Position | Company | Location | Link |\n")
		b.WriteString("|-------|----------|---------|----------|------|\n")

		if len(matching) > 0 {
			for _, l := range matching {
				fmt.Fprintf(&b, "| **%d** | %s | %s | %s | [View](%s) |\n",
					l.Score, tableTitle(l.Title), orDash(l.Company), orDash(l.Location), l.URL)
			}
		} else {
			b.WriteString("| - | No matching jobs found | - | - | - |\n")
		}
		b.WriteString("\n")

		if len(matching) > 0 {
			b.WriteString("### Detailed Analysis\n\n")
			for _, l := range matching {
				fmt.Fprintf(&b, "**%s**\nCompany: %s | Location: %s | Score: %d/100\n%s\n[View on FINN](%s)\n\n---\n\n",
					orUnknown(l.Title), orDash(l.Company), orDash(l.Location), l.Score, l.Rationale, l.URL)
			}
		}

		total, high, medium := 0, 0, 0
		for _, l := range section {
			total++
			if l.IsHigh() {
				high++
			} else if l.IsMedium() {
				medium++
			}
		}
		fmt.Fprintf(&b, "**Stats:** %d analyzed | %d high match | %d medium match\n\n---\n\n",
			total, high, medium)
	}

	b.WriteString("*Report generated automatically by Job Scanner*\n")
	return b.String()
}

func tableTitle(title string) string {
	if title == "" {
		return "Unknown"
	}
	if runes := []rune(title); len(runes) > maxTableTitleLen {
		return string(runes[:maxTableTitleLen]) + "..."
	}
	return title
}

func orDash(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// IndexEntry is one row of the reports index.
type IndexEntry struct {
	Filename    string `json:"filename"`
	Date        string `json:"date"`
	DateDisplay string `json:"date_display"`
}

// UpdateIndex rebuilds the reports index from the report keys currently in
// the store, newest first.
func UpdateIndex(ctx context.Context, blob storage.Store) error {
	keys, err := blob.List(ctx, storage.ReportPrefix)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	entries := []IndexEntry{}
	for _, key := range keys {
		filename := key[strings.LastIndex(key, "/")+1:]
		date, err := ParseFilenameDate(filename)
		if err != nil {
			continue
		}
		entries = append(entries, IndexEntry{
			Filename:    filename,
			Date:        date.Format("2006-01-02"),
			DateDisplay: date.Format("January 2, 2006"),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date > entries[j].Date
	})

	return storage.PutJSON(ctx, blob, storage.KeyReportsIndex, entries)
}

// Save writes the rendered report under its date key and refreshes the
// index.
func Save(ctx context.Context, blob storage.Store, content string, date time.Time) (string, error) {
	key := Key(date)
	if err := blob.Put(ctx, key, []byte(content)); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	if err := UpdateIndex(ctx, blob); err != nil {
		return "", err
	}
	return key, nil
}
