package scan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eivindh/finnscan/internal/config"
	"github.com/eivindh/finnscan/internal/details"
	"github.com/eivindh/finnscan/internal/fetch"
	"github.com/eivindh/finnscan/internal/history"
	"github.com/eivindh/finnscan/internal/listing"
	"github.com/eivindh/finnscan/internal/notify"
	"github.com/eivindh/finnscan/internal/report"
	"github.com/eivindh/finnscan/internal/retention"
	"github.com/eivindh/finnscan/internal/scoring"
	"github.com/eivindh/finnscan/internal/storage"
	"github.com/eivindh/finnscan/internal/types"
)

const divider = "============================================================"

// OracleFactory opens a scoring oracle for one run. The returned oracle is
// closed when the run finishes.
type OracleFactory func(ctx context.Context, apiKey string) (scoring.Oracle, error)

// Runner orchestrates a full scan: every enabled profile in config order,
// then report, metadata mirror, index and retention.
type Runner struct {
	Blob          storage.Store
	APIKey        string
	Listings      Discoverer
	Details       DetailSource
	NewOracle     OracleFactory
	RetentionDays int

	// Deliver, when set, receives the run's analyzed listings after the
	// report is saved. Used for Telegram summary pushes.
	Deliver func([]types.Listing)

	Cooldown time.Duration
	Sleep    func(time.Duration)
	Now      func() time.Time
}

// NewRunner wires a Runner from the app configuration: HTTP-backed listing
// and detail fetchers and the Gemini oracle.
func NewRunner(blob storage.Store, cfg *config.App) *Runner {
	opts := fetch.DefaultOptions()
	pageFetcher := listing.PageFetcherFunc(func(ctx context.Context, pageURL string) (string, error) {
		res, err := fetch.URL(ctx, pageURL, opts)
		if err != nil {
			return "", err
		}
		return res.HTML, nil
	})

	return &Runner{
		Blob:     blob,
		APIKey:   cfg.GeminiAPIKey,
		Listings: listing.NewSource(pageFetcher),
		Details:  details.NewFetcher(opts, cfg.UseBrowser, cfg.Verbose),
		NewOracle: func(ctx context.Context, apiKey string) (scoring.Oracle, error) {
			oracle, err := scoring.NewGeminiOracle(ctx, apiKey)
			if err != nil {
				return nil, err
			}
			return oracle, nil
		},
		RetentionDays: retention.DefaultRetentionDays,
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// failRun finalizes a run that could not start.
func (r *Runner) failRun(ctx context.Context, lb *Logbook, runLog *RunLog, msg string) {
	runLog.Status = StatusError
	runLog.Errors = append(runLog.Errors, msg)
	runLog.EndTime = r.now().Format(time.RFC3339)
	if err := lb.Save(ctx, runLog); err != nil {
		fmt.Printf("Warning: failed to save run log: %v\n", err)
	}
}

// Run executes one scan starting now.
func (r *Runner) Run(ctx context.Context, source string) (*RunLog, error) {
	return r.RunAt(ctx, source, r.now())
}

// RunAt executes one scan with an explicit start time, which fixes the run
// id. The returned RunLog is always non-nil; the error reports why the run
// could not complete.
func (r *Runner) RunAt(ctx context.Context, source string, start time.Time) (*RunLog, error) {
	fmt.Println(divider)
	fmt.Println("FINN.no Job Scanner")
	fmt.Printf("Time: %s\n", start.Format("2006-01-02 15:04:05"))
	fmt.Println(divider)

	lb := NewLogbook(r.Blob)
	runLog := NewRunLog(start, source)
	if err := lb.Save(ctx, runLog); err != nil {
		fmt.Printf("Warning: failed to save initial run log: %v\n", err)
	}

	if r.APIKey == "" {
		r.failRun(ctx, lb, runLog, "Gemini API key not configured")
		return runLog, fmt.Errorf("gemini API key not configured")
	}

	raw, err := r.Blob.Get(ctx, storage.KeyProfiles)
	if err == storage.ErrNotFound {
		r.failRun(ctx, lb, runLog, "No search profiles configured")
		return runLog, fmt.Errorf("no search profiles configured: upload %s", storage.KeyProfiles)
	}
	if err != nil {
		r.failRun(ctx, lb, runLog, fmt.Sprintf("Failed to load profiles: %v", err))
		return runLog, fmt.Errorf("failed to load profiles: %w", err)
	}

	profiles, err := config.ParseProfiles(raw)
	if err != nil {
		r.failRun(ctx, lb, runLog, fmt.Sprintf("Invalid profiles config: %v", err))
		return runLog, fmt.Errorf("invalid profiles config: %w", err)
	}

	enabled := profiles.Enabled()
	if len(enabled) == 0 {
		r.failRun(ctx, lb, runLog, "No enabled search profiles found")
		return runLog, fmt.Errorf("no enabled search profiles found")
	}

	names := make([]string, len(enabled))
	for i, p := range enabled {
		names[i] = p.DisplayName()
	}
	fmt.Printf("\nEnabled profiles: %s\n", strings.Join(names, ", "))

	hist, err := history.Load(ctx, r.Blob)
	if err != nil {
		r.failRun(ctx, lb, runLog, fmt.Sprintf("Failed to load history: %v", err))
		return runLog, fmt.Errorf("failed to load history: %w", err)
	}
	fmt.Printf("Loaded %d previously analyzed jobs from history\n", hist.Size())

	oracle, err := r.NewOracle(ctx, r.APIKey)
	if err != nil {
		r.failRun(ctx, lb, runLog, fmt.Sprintf("Failed to initialize oracle: %v", err))
		return runLog, fmt.Errorf("failed to initialize oracle: %w", err)
	}
	defer func() {
		if cerr := oracle.Close(); cerr != nil {
			fmt.Printf("Warning: failed to close oracle: %v\n", cerr)
		}
	}()

	proc := &Processor{
		Listings: r.Listings,
		Details:  r.Details,
		Oracle:   oracle,
		History:  hist,
		Notify:   notify.NewCenter(r.Blob),
		Logbook:  lb,
		Cooldown: r.Cooldown,
		Sleep:    r.Sleep,
		Now:      r.Now,
	}

	var analyzed []types.Listing
	for _, p := range enabled {
		analyzed = append(analyzed, proc.ProcessProfile(ctx, p, runLog)...)
	}

	if len(analyzed) > 0 {
		md := report.Generate(analyzed, enabled, start)
		key, err := report.Save(ctx, r.Blob, md, start)
		if err != nil {
			fmt.Printf("Warning: failed to save report: %v\n", err)
			runLog.Errors = append(runLog.Errors, fmt.Sprintf("report: %v", err))
		} else {
			fmt.Printf("\nReport saved: %s\n", key)
		}
		if r.Deliver != nil {
			r.Deliver(analyzed)
		}
	} else {
		fmt.Println("\nNo new jobs analyzed across all profiles.")
	}

	if err := WriteProfilesMeta(ctx, r.Blob, profiles); err != nil {
		fmt.Printf("Warning: failed to write profiles metadata: %v\n", err)
	}

	if _, err := retention.CleanupAt(ctx, r.Blob, hist, r.RetentionDays, start); err != nil {
		fmt.Printf("Warning: cleanup failed: %v\n", err)
	}

	end := r.now()
	duration := end.Sub(start).Seconds()

	runLog.Status = StatusComplete
	runLog.EndTime = end.Format(time.RFC3339)
	runLog.DurationSeconds = duration
	runLog.Summary = summarize(analyzed, len(enabled), hist.Size())
	if err := lb.Save(ctx, runLog); err != nil {
		fmt.Printf("Warning: failed to save final run log: %v\n", err)
	}

	fmt.Printf("\n%s\n", divider)
	fmt.Println("Scan complete!")
	fmt.Printf("Total new jobs analyzed: %d\n", len(analyzed))
	fmt.Printf("Total jobs in history: %d\n", hist.Size())
	fmt.Printf("Duration: %.1f seconds\n", duration)
	fmt.Println(divider)

	return runLog, nil
}

func summarize(analyzed []types.Listing, profileCount, historySize int) *Summary {
	s := &Summary{
		JobsAnalyzed:      len(analyzed),
		ProfilesProcessed: profileCount,
		TotalInHistory:    historySize,
	}
	for _, l := range analyzed {
		if l.IsHigh() {
			s.HighMatches++
		} else if l.IsMedium() {
			s.MediumMatches++
		}
	}
	return s
}

// WriteProfilesMeta mirrors profile names and enabled flags for the
// dashboard.
func WriteProfilesMeta(ctx context.Context, blob storage.Store, profiles *config.ProfileSet) error {
	meta := make(map[string]ProfileMeta, len(profiles.Profiles))
	for _, p := range profiles.Profiles {
		meta[p.ID] = ProfileMeta{Name: p.DisplayName(), Enabled: p.IsEnabled()}
	}
	return storage.PutJSON(ctx, blob, storage.KeyProfilesMeta, meta)
}

// ProfileMeta is one entry of the dashboard profiles mirror.
type ProfileMeta struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}
