// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/eivindh/finnscan/internal/scan"
	"github.com/eivindh/finnscan/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunSummary outputs a human-readable summary of a finished run.
func (p *Printer) PrintRunSummary(runLog *scan.RunLog) {
	if runLog == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s (%s)\n", runLog.RunID, runLog.Source))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", runLog.Status))
	if runLog.DurationSeconds > 0 {
		sb.WriteString(fmt.Sprintf("Duration: %.1fs\n", runLog.DurationSeconds))
	}

	if s := runLog.Summary; s != nil {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Profiles processed: %d\n", s.ProfilesProcessed))
		sb.WriteString(fmt.Sprintf("Jobs analyzed:      %d\n", s.JobsAnalyzed))
		sb.WriteString(fmt.Sprintf("High matches:       %d\n", s.HighMatches))
		sb.WriteString(fmt.Sprintf("Medium matches:     %d\n", s.MediumMatches))
		sb.WriteString(fmt.Sprintf("Total in history:   %d\n", s.TotalInHistory))
	}

	if len(runLog.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		count := min(len(runLog.Errors), 3)
		for i := 0; i < count; i++ {
			msg := runLog.Errors[i]
			if len(msg) > 50 {
				msg = msg[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", msg))
		}
		if len(runLog.Errors) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(runLog.Errors)-3))
		}
	}

	p.printBox("SCAN RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProfileLog outputs one profile's progress counters.
func (p *Printer) PrintProfileLog(plog *scan.ProfileLog) {
	if plog == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Profile:  %s\n", plog.ProfileName))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", plog.Status))
	sb.WriteString(fmt.Sprintf("Found:    %d (pages: %d", plog.JobsFound, plog.PagesFetched))
	if plog.Limited {
		sb.WriteString(", limited")
	}
	sb.WriteString(")\n")
	sb.WriteString(fmt.Sprintf("Skipped:  %d\n", plog.JobsSkipped))
	sb.WriteString(fmt.Sprintf("Analyzed: %d", plog.JobsAnalyzed))
	if plog.Error != "" {
		msg := plog.Error
		if len(msg) > 45 {
			msg = msg[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("\n\n⚠ %s", msg))
	}

	p.printBox("PROFILE RESULT", sb.String())
}

// PrintTopMatches outputs the highest-scoring listings from a run.
func (p *Printer) PrintTopMatches(listings []types.Listing) {
	if len(listings) == 0 {
		p.printBox("TOP MATCHES", "No new jobs analyzed")
		return
	}

	var sb strings.Builder
	count := min(len(listings), maxItemsToShow)
	for i := 0; i < count; i++ {
		l := listings[i]
		title := l.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, title))
		sb.WriteString(fmt.Sprintf("    Score: %d/100", l.Score))
		if l.Company != "" {
			company := l.Company
			if len(company) > 30 {
				company = company[:27] + "..."
			}
			sb.WriteString(fmt.Sprintf("  %s", company))
		}
		sb.WriteString("\n")
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(listings) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more listings", len(listings)-maxItemsToShow))
	}

	p.printBox("TOP MATCHES", sb.String())
}
