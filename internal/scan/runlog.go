// Package scan runs the scanning pipeline: listing discovery, detail
// fetching, oracle scoring, history bookkeeping and run logging.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/eivindh/finnscan/internal/storage"
	"github.com/eivindh/finnscan/internal/types"
)

// RunIDFormat is the timestamp layout used for run identifiers.
const RunIDFormat = "20060102_150405"

// MaxRunHistory bounds the retained run history.
const MaxRunHistory = 50

// Run and profile statuses.
const (
	StatusRunning          = "running"
	StatusComplete         = "complete"
	StatusError            = "error"
	StatusPending          = "pending"
	StatusFetchingListings = "fetching_listings"
	StatusSkipped          = "skipped"
	StatusAnalyzing        = "analyzing"
)

// Run sources.
const (
	SourceScheduled = "scheduled"
	SourceManual    = "manual"
)

// JobLog records one listing's progress inside a profile run.
type JobLog struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	Score     *int   `json:"score,omitempty"`
	Company   string `json:"company,omitempty"`
	Location  string `json:"location,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ProfileLog records one profile's progress inside a run.
type ProfileLog struct {
	ProfileID    string    `json:"profile_id"`
	ProfileName  string    `json:"profile_name"`
	Status       string    `json:"status"`
	SearchURL    string    `json:"search_url"`
	JobsFound    int       `json:"jobs_found"`
	JobsSkipped  int       `json:"jobs_skipped"`
	JobsAnalyzed int       `json:"jobs_analyzed"`
	Limited      bool      `json:"limited"`
	PagesFetched int       `json:"pages_fetched"`
	Jobs         []*JobLog `json:"jobs"`
	Error        string    `json:"error,omitempty"`
}

// Summary aggregates a finished run.
type Summary struct {
	JobsAnalyzed      int `json:"jobs_analyzed"`
	ProfilesProcessed int `json:"profiles_processed"`
	TotalInHistory    int `json:"total_in_history"`
	HighMatches       int `json:"high_matches"`
	MediumMatches     int `json:"medium_matches"`
}

// RunLog is the live log of one scan run, persisted after every mutation so
// the dashboard can follow progress and a crash loses at most one step.
type RunLog struct {
	RunID           string        `json:"run_id"`
	StartTime       string        `json:"start_time"`
	EndTime         string        `json:"end_time,omitempty"`
	DurationSeconds float64       `json:"duration_seconds,omitempty"`
	Status          string        `json:"status"`
	Source          string        `json:"source"`
	Profiles        []*ProfileLog `json:"profiles"`
	Summary         *Summary      `json:"summary,omitempty"`
	Errors          []string      `json:"errors"`
}

// NewRunLog initializes a run log for a run starting now.
func NewRunLog(start time.Time, source string) *RunLog {
	return &RunLog{
		RunID:     start.Format(RunIDFormat),
		StartTime: start.Format(time.RFC3339),
		Status:    StatusRunning,
		Source:    source,
		Profiles:  []*ProfileLog{},
		Errors:    []string{},
	}
}

// Logbook persists run logs: the current run under its own key plus a
// bounded history with idempotent upsert by run id.
type Logbook struct {
	blob storage.Store
}

// NewLogbook creates a logbook over the blob store.
func NewLogbook(blob storage.Store) *Logbook {
	return &Logbook{blob: blob}
}

// Save writes the current run log and upserts it into the run history.
func (lb *Logbook) Save(ctx context.Context, runLog *RunLog) error {
	if err := storage.PutJSON(ctx, lb.blob, storage.KeyRunLog, runLog); err != nil {
		return fmt.Errorf("failed to save run log: %w", err)
	}

	runs, err := lb.History(ctx)
	if err != nil {
		return err
	}

	updated := false
	for i, r := range runs {
		if r.RunID == runLog.RunID {
			runs[i] = runLog
			updated = true
			break
		}
	}
	if !updated {
		runs = append([]*RunLog{runLog}, runs...)
	}
	if len(runs) > MaxRunHistory {
		runs = runs[:MaxRunHistory]
	}

	if err := storage.PutJSON(ctx, lb.blob, storage.KeyRunHistory, runs); err != nil {
		return fmt.Errorf("failed to save run history: %w", err)
	}
	return nil
}

// Current returns the most recently saved run log, or nil when none exists.
func (lb *Logbook) Current(ctx context.Context) (*RunLog, error) {
	var runLog RunLog
	err := storage.GetJSON(ctx, lb.blob, storage.KeyRunLog, &runLog)
	if err == storage.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &runLog, nil
}

// History returns the retained run logs, newest first.
func (lb *Logbook) History(ctx context.Context) ([]*RunLog, error) {
	var runs []*RunLog
	err := storage.GetJSON(ctx, lb.blob, storage.KeyRunHistory, &runs)
	if err == storage.ErrNotFound {
		return []*RunLog{}, nil
	}
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// AnalyzedListings reconstructs the listings analyzed during the run from
// its job logs, profile by profile in run order.
func (rl *RunLog) AnalyzedListings() []types.Listing {
	var out []types.Listing
	for _, plog := range rl.Profiles {
		for _, jlog := range plog.Jobs {
			if jlog.Status != StatusComplete || jlog.Score == nil {
				continue
			}
			out = append(out, types.Listing{
				ProfileID:   plog.ProfileID,
				ProfileName: plog.ProfileName,
				Title:       jlog.Title,
				Company:     jlog.Company,
				Location:    jlog.Location,
				URL:         jlog.URL,
				Score:       *jlog.Score,
				Rationale:   jlog.Reasoning,
				Status:      "analyzed",
			})
		}
	}
	return out
}
