package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eivindh/finnscan/internal/scan"
	"github.com/eivindh/finnscan/internal/types"
)

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	runLog := &scan.RunLog{
		RunID:           "20260302_083000",
		Source:          scan.SourceScheduled,
		Status:          scan.StatusComplete,
		DurationSeconds: 42.5,
		Summary: &scan.Summary{
			JobsAnalyzed:      3,
			ProfilesProcessed: 2,
			TotalInHistory:    17,
			HighMatches:       1,
			MediumMatches:     1,
		},
		Errors: []string{"Backend: status 503"},
	}

	p.PrintRunSummary(runLog)
	output := buf.String()

	assert.Contains(t, output, "SCAN RUN SUMMARY")
	assert.Contains(t, output, "20260302_083000")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "Jobs analyzed:      3")
	assert.Contains(t, output, "status 503")
}

func TestPrintRunSummary_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunSummary(nil)

	assert.Empty(t, buf.String())
}

func TestPrintProfileLog(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	plog := &scan.ProfileLog{
		ProfileName:  "Backend Developer",
		Status:       scan.StatusComplete,
		JobsFound:    12,
		JobsSkipped:  8,
		JobsAnalyzed: 4,
		PagesFetched: 2,
		Limited:      true,
	}

	p.PrintProfileLog(plog)
	output := buf.String()

	assert.Contains(t, output, "PROFILE RESULT")
	assert.Contains(t, output, "Backend Developer")
	assert.Contains(t, output, "limited")
	assert.Contains(t, output, "Skipped:  8")
}

func TestPrintTopMatches(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	listings := []types.Listing{
		{Title: "Senior Go Developer", Company: "Acme", Score: 85},
		{Title: "Platform Engineer", Score: 60},
	}

	p.PrintTopMatches(listings)
	output := buf.String()

	assert.Contains(t, output, "TOP MATCHES")
	assert.Contains(t, output, "Senior Go Developer")
	assert.Contains(t, output, "Score: 85/100")
	assert.Contains(t, output, "Acme")
}

func TestPrintTopMatches_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintTopMatches(nil)

	assert.Contains(t, buf.String(), "No new jobs analyzed")
}

func TestPrintTopMatches_CapsList(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	var listings []types.Listing
	for i := 0; i < 8; i++ {
		listings = append(listings, types.Listing{Title: "Match", Score: 70})
	}

	p.PrintTopMatches(listings)
	output := buf.String()

	assert.Equal(t, maxItemsToShow, strings.Count(output, "Score: 70/100"))
	assert.Contains(t, output, "and 3 more listings")
}
