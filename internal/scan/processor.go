package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/eivindh/finnscan/internal/config"
	"github.com/eivindh/finnscan/internal/details"
	"github.com/eivindh/finnscan/internal/history"
	"github.com/eivindh/finnscan/internal/listing"
	"github.com/eivindh/finnscan/internal/notify"
	"github.com/eivindh/finnscan/internal/scoring"
	"github.com/eivindh/finnscan/internal/types"
)

// ListingCooldown is the pause after each listing analysis.
const ListingCooldown = 2 * time.Second

const maxLogReasoningLen = 100

// Discoverer yields listing stubs for a search endpoint.
type Discoverer interface {
	Discover(ctx context.Context, endpoint string, maxListings int) (*listing.Result, error)
}

// DetailSource fetches and parses one listing's detail page.
type DetailSource interface {
	Fetch(ctx context.Context, listingURL string) (*details.Details, error)
}

// Processor runs the pipeline for one profile: discover stubs, skip the
// already-seen, fetch details, score, notify and record.
type Processor struct {
	Listings Discoverer
	Details  DetailSource
	Oracle   scoring.Oracle
	History  *history.Store
	Notify   *notify.Center
	Logbook  *Logbook

	Cooldown time.Duration
	Sleep    func(time.Duration)
	Now      func() time.Time
}

func (p *Processor) sleep(d time.Duration) {
	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Processor) cooldown() time.Duration {
	if p.Cooldown > 0 {
		return p.Cooldown
	}
	return ListingCooldown
}

// checkpoint persists the run log after a mutation. Failures are logged and
// the scan continues; the log is a progress mirror, not pipeline state.
func (p *Processor) checkpoint(ctx context.Context, runLog *RunLog) {
	if err := p.Logbook.Save(ctx, runLog); err != nil {
		fmt.Printf("Warning: failed to save run log: %v\n", err)
	}
}

// ProcessProfile runs one profile, appending its sub-log to the run log and
// returning the listings analyzed this run. All failures are recorded in
// the logs; the per-profile error surface never aborts the run.
func (p *Processor) ProcessProfile(ctx context.Context, profile *config.Profile, runLog *RunLog) []types.Listing {
	fmt.Printf("\n%s\n", divider)
	fmt.Printf("Profile: %s\n", profile.DisplayName())
	fmt.Printf("%s\n", divider)

	plog := &ProfileLog{
		ProfileID:   profile.ID,
		ProfileName: profile.DisplayName(),
		Status:      StatusPending,
		SearchURL:   profile.SearchURL,
		Jobs:        []*JobLog{},
	}
	runLog.Profiles = append(runLog.Profiles, plog)
	p.checkpoint(ctx, runLog)

	if profile.SearchURL == "" {
		fmt.Println("  No search URL configured, skipping.")
		plog.Status = StatusSkipped
		plog.Error = "No search URL configured"
		p.checkpoint(ctx, runLog)
		return nil
	}

	plog.Status = StatusFetchingListings
	p.checkpoint(ctx, runLog)

	result, err := p.Listings.Discover(ctx, profile.SearchURL, profile.MaxJobs())
	if err != nil {
		fmt.Printf("  Error fetching jobs: %v\n", err)
		plog.Status = StatusError
		plog.Error = err.Error()
		runLog.Errors = append(runLog.Errors, fmt.Sprintf("%s: %v", profile.DisplayName(), err))
		p.checkpoint(ctx, runLog)
		return nil
	}

	plog.JobsFound = len(result.Listings)
	plog.Limited = result.Truncated
	plog.PagesFetched = result.PagesFetched

	if len(result.Listings) == 0 {
		fmt.Println("  No job listings found.")
		plog.Status = StatusComplete
		p.checkpoint(ctx, runLog)
		return nil
	}

	var fresh []listing.Stub
	for _, stub := range result.Listings {
		if !p.History.Seen(profile.ID, stub.ID) {
			fresh = append(fresh, stub)
		}
	}
	plog.JobsSkipped = len(result.Listings) - len(fresh)
	if plog.JobsSkipped > 0 {
		fmt.Printf("  Skipping %d previously analyzed jobs\n", plog.JobsSkipped)
	}

	if len(fresh) == 0 {
		fmt.Println("  No new jobs to analyze.")
		plog.Status = StatusComplete
		p.checkpoint(ctx, runLog)
		return nil
	}

	fmt.Printf("  Analyzing %d new jobs...\n", len(fresh))
	plog.Status = StatusAnalyzing
	p.checkpoint(ctx, runLog)

	var analyzed []types.Listing
	for i, stub := range fresh {
		fmt.Printf("\n  [%d/%d] %s\n", i+1, len(fresh), headline(stub.Title))
		analyzed = append(analyzed, p.processListing(ctx, profile, plog, runLog, stub))
		plog.JobsAnalyzed = len(analyzed)
		p.checkpoint(ctx, runLog)
		p.sleep(p.cooldown())
	}

	plog.Status = StatusComplete
	p.checkpoint(ctx, runLog)
	return analyzed
}

// processListing analyzes one fresh listing. A failed detail fetch is
// recovered: the listing is recorded with score zero so it is not retried
// on the next run.
func (p *Processor) processListing(ctx context.Context, profile *config.Profile, plog *ProfileLog, runLog *RunLog, stub listing.Stub) types.Listing {
	jlog := &JobLog{Title: stub.Title, URL: stub.URL, Status: StatusAnalyzing}
	plog.Jobs = append(plog.Jobs, jlog)
	p.checkpoint(ctx, runLog)

	job := types.Listing{
		ID:          stub.ID,
		ProfileID:   profile.ID,
		ProfileName: profile.DisplayName(),
		Title:       stub.Title,
		URL:         stub.URL,
	}

	detail, err := p.Details.Fetch(ctx, stub.URL)
	if err != nil {
		fmt.Println("    Could not fetch job details")
		job.Score = 0
		job.Rationale = "Could not fetch job details"
		job.Status = string(history.StatusFailed)
		jlog.Status = StatusError
		jlog.Error = "Could not fetch job details"
	} else {
		if detail.Title != "" {
			job.Title = detail.Title
			jlog.Title = detail.Title
		}
		job.Company = detail.Company
		job.Location = detail.Location

		verdict := scoring.ScoreOrZero(ctx, p.Oracle, detail.PromptText(), profile.Criteria)
		job.Score = verdict.Score
		job.Rationale = verdict.Rationale
		job.Status = string(history.StatusAnalyzed)
		fmt.Printf("    Score: %d/100 - %s\n", job.Score, headline(job.Rationale))

		if job.Score >= profile.NotifyThreshold() {
			_, nerr := p.Notify.Create(ctx, notify.Notification{
				ListingID: job.ID,
				ProfileID: profile.ID,
				Title:     job.Title,
				Company:   job.Company,
				Score:     job.Score,
				Threshold: profile.NotifyThreshold(),
				URL:       job.URL,
				Rationale: job.Rationale,
			})
			if nerr != nil {
				fmt.Printf("Warning: failed to create notification: %v\n", nerr)
			}
		}

		score := job.Score
		jlog.Status = StatusComplete
		jlog.Score = &score
		jlog.Company = job.Company
		jlog.Location = job.Location
		jlog.Reasoning = clip(job.Rationale, maxLogReasoningLen)
	}

	entry := history.Entry{
		Title:        job.Title,
		Company:      job.Company,
		Location:     job.Location,
		URL:          job.URL,
		Score:        job.Score,
		Rationale:    job.Rationale,
		Status:       history.Status(job.Status),
		AnalyzedDate: p.now().Format(history.DateFormat),
	}
	if err := p.History.Record(ctx, profile.ID, job.ID, entry); err != nil {
		fmt.Printf("Warning: failed to record history for %s: %v\n", job.ID, err)
	}

	return job
}

func clip(s string, n int) string {
	if runes := []rune(s); len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return s
}

func headline(s string) string {
	return clip(s, 50)
}
