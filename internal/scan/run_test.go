package scan

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eivindh/finnscan/internal/details"
	"github.com/eivindh/finnscan/internal/history"
	"github.com/eivindh/finnscan/internal/listing"
	"github.com/eivindh/finnscan/internal/notify"
	"github.com/eivindh/finnscan/internal/report"
	"github.com/eivindh/finnscan/internal/scoring"
	"github.com/eivindh/finnscan/internal/storage"
)

type fakeDiscoverer struct {
	results map[string]*listing.Result
	errs    map[string]error
}

func (f *fakeDiscoverer) Discover(_ context.Context, endpoint string, _ int) (*listing.Result, error) {
	if err := f.errs[endpoint]; err != nil {
		return nil, err
	}
	if res := f.results[endpoint]; res != nil {
		return res, nil
	}
	return &listing.Result{PagesFetched: 1}, nil
}

type fakeDetails struct {
	pages map[string]*details.Details
}

func (f *fakeDetails) Fetch(_ context.Context, url string) (*details.Details, error) {
	if d := f.pages[url]; d != nil {
		return d, nil
	}
	return nil, fmt.Errorf("fetch failed for %s", url)
}

type fakeOracle struct {
	scores map[string]int
	calls  int
}

func (f *fakeOracle) Score(_ context.Context, description, _ string) (scoring.Result, error) {
	f.calls++
	for marker, score := range f.scores {
		if strings.Contains(description, marker) {
			return scoring.Result{Score: score, Rationale: "Matched " + marker}, nil
		}
	}
	return scoring.Result{Score: 10, Rationale: "Weak match"}, nil
}

func (f *fakeOracle) Close() error { return nil }

const testProfilesJSON = `{
  "backend": {
    "name": "Backend Developer",
    "search_url": "https://www.finn.no/job/search?q=go",
    "profile": "Go developer with distributed systems experience."
  }
}`

func adURL(code string) string {
	return "https://www.finn.no/job/ad/" + code
}

func newTestRunner(blob storage.Store, disc Discoverer, det DetailSource, oracle scoring.Oracle) *Runner {
	return &Runner{
		Blob:     blob,
		APIKey:   "test-key",
		Listings: disc,
		Details:  det,
		NewOracle: func(context.Context, string) (scoring.Oracle, error) {
			return oracle, nil
		},
		Sleep: func(time.Duration) {},
		Now:   func() time.Time { return time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC) },
	}
}

func seedProfiles(t *testing.T, blob storage.Store, doc string) {
	t.Helper()
	require.NoError(t, blob.Put(context.Background(), storage.KeyProfiles, []byte(doc)))
}

func TestRunAnalyzesNewListings(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	seedProfiles(t, blob, testProfilesJSON)

	disc := &fakeDiscoverer{results: map[string]*listing.Result{
		"https://www.finn.no/job/search?q=go": {
			Listings: []listing.Stub{
				{ID: "100", Title: "Senior Go Developer", URL: adURL("100")},
				{ID: "200", Title: "Junior Tester", URL: adURL("200")},
			},
			PagesFetched: 1,
		},
	}}
	det := &fakeDetails{pages: map[string]*details.Details{
		adURL("100"): {Title: "Senior Go Developer", Company: "Acme", Location: "Oslo", Description: "Go microservices"},
		adURL("200"): {Title: "Junior Tester", Company: "Beta", Location: "Bergen", Description: "Manual QA"},
	}}
	oracle := &fakeOracle{scores: map[string]int{"Go microservices": 85, "Manual QA": 20}}

	runLog, err := newTestRunner(blob, disc, det, oracle).Run(ctx, SourceScheduled)
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, runLog.Status)
	assert.Equal(t, SourceScheduled, runLog.Source)
	require.Len(t, runLog.Profiles, 1)
	plog := runLog.Profiles[0]
	assert.Equal(t, StatusComplete, plog.Status)
	assert.Equal(t, 2, plog.JobsFound)
	assert.Equal(t, 2, plog.JobsAnalyzed)
	assert.Zero(t, plog.JobsSkipped)

	require.NotNil(t, runLog.Summary)
	assert.Equal(t, 2, runLog.Summary.JobsAnalyzed)
	assert.Equal(t, 1, runLog.Summary.HighMatches)
	assert.Zero(t, runLog.Summary.MediumMatches)
	assert.Equal(t, 2, runLog.Summary.TotalInHistory)

	// Both listings land in history, scored.
	hist, err := history.Load(ctx, blob)
	require.NoError(t, err)
	assert.True(t, hist.Seen("backend", "100"))
	assert.True(t, hist.Seen("backend", "200"))
	assert.Equal(t, 85, hist.Entries("backend")["100"].Score)

	// Only the high scorer clears the default notification threshold.
	items, err := notify.NewCenter(blob).List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "100", items[0].ListingID)
	assert.Equal(t, 85, items[0].Score)

	// Report written under the run date.
	md, err := blob.Get(ctx, "data/reports/job_report_20260302.md")
	require.NoError(t, err)
	assert.Contains(t, string(md), "Senior Go Developer")

	// Profiles metadata mirror.
	var meta map[string]ProfileMeta
	require.NoError(t, storage.GetJSON(ctx, blob, storage.KeyProfilesMeta, &meta))
	assert.Equal(t, "Backend Developer", meta["backend"].Name)
	assert.True(t, meta["backend"].Enabled)
}

func TestRunSkipsPreviouslyAnalyzed(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	seedProfiles(t, blob, testProfilesJSON)

	hist, err := history.Load(ctx, blob)
	require.NoError(t, err)
	require.NoError(t, hist.Record(ctx, "backend", "100", history.Entry{
		Title: "Senior Go Developer", Score: 85,
		Status: history.StatusAnalyzed, AnalyzedDate: "2026-03-01",
	}))

	disc := &fakeDiscoverer{results: map[string]*listing.Result{
		"https://www.finn.no/job/search?q=go": {
			Listings:     []listing.Stub{{ID: "100", Title: "Senior Go Developer", URL: adURL("100")}},
			PagesFetched: 1,
		},
	}}
	oracle := &fakeOracle{}

	runLog, err := newTestRunner(blob, disc, &fakeDetails{}, oracle).Run(ctx, SourceScheduled)
	require.NoError(t, err)

	plog := runLog.Profiles[0]
	assert.Equal(t, StatusComplete, plog.Status)
	assert.Equal(t, 1, plog.JobsSkipped)
	assert.Zero(t, plog.JobsAnalyzed)
	assert.Zero(t, oracle.calls)
	assert.Zero(t, runLog.Summary.JobsAnalyzed)
}

func TestRunRecoversFailedDetailFetch(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	seedProfiles(t, blob, testProfilesJSON)

	disc := &fakeDiscoverer{results: map[string]*listing.Result{
		"https://www.finn.no/job/search?q=go": {
			Listings:     []listing.Stub{{ID: "100", Title: "Unreachable Listing", URL: adURL("100")}},
			PagesFetched: 1,
		},
	}}

	runLog, err := newTestRunner(blob, disc, &fakeDetails{}, &fakeOracle{}).Run(ctx, SourceManual)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, runLog.Status)

	// Recorded with score zero so the next run does not retry it.
	hist, err := history.Load(ctx, blob)
	require.NoError(t, err)
	entry := hist.Entries("backend")["100"]
	assert.Equal(t, history.StatusFailed, entry.Status)
	assert.Zero(t, entry.Score)

	items, err := notify.NewCenter(blob).List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.Len(t, runLog.Profiles[0].Jobs, 1)
	assert.Equal(t, StatusError, runLog.Profiles[0].Jobs[0].Status)
}

func TestRunDiscoveryErrorDoesNotAbortOtherProfiles(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	seedProfiles(t, blob, `{
	  "broken": {
	    "name": "Broken",
	    "search_url": "https://www.finn.no/job/search?q=broken",
	    "profile": "Anything"
	  },
	  "backend": {
	    "name": "Backend Developer",
	    "search_url": "https://www.finn.no/job/search?q=go",
	    "profile": "Go developer"
	  }
	}`)

	disc := &fakeDiscoverer{
		errs: map[string]error{
			"https://www.finn.no/job/search?q=broken": fmt.Errorf("status 503"),
		},
		results: map[string]*listing.Result{
			"https://www.finn.no/job/search?q=go": {
				Listings:     []listing.Stub{{ID: "100", Title: "Go Developer", URL: adURL("100")}},
				PagesFetched: 1,
			},
		},
	}
	det := &fakeDetails{pages: map[string]*details.Details{
		adURL("100"): {Title: "Go Developer", Description: "Go microservices"},
	}}

	runLog, err := newTestRunner(blob, disc, det, &fakeOracle{scores: map[string]int{"Go microservices": 60}}).Run(ctx, SourceScheduled)
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, runLog.Status)
	require.Len(t, runLog.Profiles, 2)
	assert.Equal(t, StatusError, runLog.Profiles[0].Status)
	assert.Contains(t, runLog.Profiles[0].Error, "503")
	assert.Equal(t, StatusComplete, runLog.Profiles[1].Status)
	assert.Equal(t, 1, runLog.Summary.JobsAnalyzed)
	require.Len(t, runLog.Errors, 1)
	assert.Contains(t, runLog.Errors[0], "Broken")
}

func TestRunSkipsDisabledProfiles(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	seedProfiles(t, blob, `{
	  "off": {
	    "search_url": "https://www.finn.no/job/search?q=off",
	    "profile": "Anything",
	    "enabled": false
	  },
	  "backend": {
	    "search_url": "https://www.finn.no/job/search?q=go",
	    "profile": "Go developer"
	  }
	}`)

	disc := &fakeDiscoverer{}
	runLog, err := newTestRunner(blob, disc, &fakeDetails{}, &fakeOracle{}).Run(ctx, SourceScheduled)
	require.NoError(t, err)

	require.Len(t, runLog.Profiles, 1)
	assert.Equal(t, "backend", runLog.Profiles[0].ProfileID)
	assert.Equal(t, 1, runLog.Summary.ProfilesProcessed)
}

func TestRunMissingAPIKey(t *testing.T) {
	blob := storage.NewMemoryStore()
	seedProfiles(t, blob, testProfilesJSON)

	r := newTestRunner(blob, &fakeDiscoverer{}, &fakeDetails{}, &fakeOracle{})
	r.APIKey = ""

	runLog, err := r.Run(context.Background(), SourceScheduled)
	require.Error(t, err)
	assert.Equal(t, StatusError, runLog.Status)
	assert.NotEmpty(t, runLog.Errors)
	assert.NotEmpty(t, runLog.EndTime)
}

func TestRunNoProfilesConfigured(t *testing.T) {
	blob := storage.NewMemoryStore()

	runLog, err := newTestRunner(blob, &fakeDiscoverer{}, &fakeDetails{}, &fakeOracle{}).Run(context.Background(), SourceScheduled)
	require.Error(t, err)
	assert.Equal(t, StatusError, runLog.Status)
}

func TestRunNoEnabledProfiles(t *testing.T) {
	blob := storage.NewMemoryStore()
	seedProfiles(t, blob, `{
	  "off": {
	    "search_url": "https://www.finn.no/job/search?q=off",
	    "profile": "Anything",
	    "enabled": false
	  }
	}`)

	runLog, err := newTestRunner(blob, &fakeDiscoverer{}, &fakeDetails{}, &fakeOracle{}).Run(context.Background(), SourceScheduled)
	require.Error(t, err)
	assert.Equal(t, StatusError, runLog.Status)
	assert.Contains(t, runLog.Errors[0], "No enabled")
}

func TestRunNoProfileReportWhenNothingAnalyzed(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	seedProfiles(t, blob, testProfilesJSON)

	_, err := newTestRunner(blob, &fakeDiscoverer{}, &fakeDetails{}, &fakeOracle{}).Run(ctx, SourceScheduled)
	require.NoError(t, err)

	_, err = blob.Get(ctx, report.Key(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunPersistsRunHistory(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	seedProfiles(t, blob, testProfilesJSON)

	runLog, err := newTestRunner(blob, &fakeDiscoverer{}, &fakeDetails{}, &fakeOracle{}).Run(ctx, SourceManual)
	require.NoError(t, err)

	lb := NewLogbook(blob)
	runs, err := lb.History(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runLog.RunID, runs[0].RunID)
	assert.Equal(t, StatusComplete, runs[0].Status)

	current, err := lb.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, runLog.RunID, current.RunID)
}

// blinkingStore fails the first Put to a given key, then behaves normally.
type blinkingStore struct {
	storage.Store
	failKey string
	tripped bool
}

func (s *blinkingStore) Put(ctx context.Context, key string, data []byte) error {
	if key == s.failKey && !s.tripped {
		s.tripped = true
		return fmt.Errorf("transient storage blip")
	}
	return s.Store.Put(ctx, key, data)
}

func TestRunSurvivesInitialRunLogSaveFailure(t *testing.T) {
	blob := &blinkingStore{Store: storage.NewMemoryStore(), failKey: storage.KeyRunLog}
	ctx := context.Background()
	seedProfiles(t, blob, testProfilesJSON)

	disc := &fakeDiscoverer{results: map[string]*listing.Result{
		"https://www.finn.no/job/search?q=go": {
			Listings:     []listing.Stub{{ID: "100", Title: "Senior Go Developer", URL: adURL("100")}},
			PagesFetched: 1,
		},
	}}
	det := &fakeDetails{pages: map[string]*details.Details{
		adURL("100"): {Title: "Senior Go Developer", Company: "Acme", Description: "Go microservices"},
	}}
	oracle := &fakeOracle{scores: map[string]int{"Go microservices": 85}}

	runLog, err := newTestRunner(blob, disc, det, oracle).Run(ctx, SourceScheduled)
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, runLog.Status)
	require.Len(t, runLog.Profiles, 1)
	assert.Equal(t, 1, runLog.Profiles[0].JobsAnalyzed)

	hist, err := history.Load(ctx, blob)
	require.NoError(t, err)
	assert.True(t, hist.Seen("backend", "100"))
}

func TestRunCooldownAfterEveryListing(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	seedProfiles(t, blob, testProfilesJSON)

	disc := &fakeDiscoverer{results: map[string]*listing.Result{
		"https://www.finn.no/job/search?q=go": {
			Listings: []listing.Stub{
				{ID: "100", Title: "Senior Go Developer", URL: adURL("100")},
				{ID: "200", Title: "Junior Tester", URL: adURL("200")},
			},
			PagesFetched: 1,
		},
	}}
	det := &fakeDetails{pages: map[string]*details.Details{
		adURL("100"): {Title: "Senior Go Developer", Description: "Go microservices"},
		adURL("200"): {Title: "Junior Tester", Description: "Manual QA"},
	}}

	runner := newTestRunner(blob, disc, det, &fakeOracle{})
	var sleeps []time.Duration
	runner.Sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	_, err := runner.Run(ctx, SourceScheduled)
	require.NoError(t, err)

	// One cooldown per listing, including the last one.
	assert.Equal(t, []time.Duration{ListingCooldown, ListingCooldown}, sleeps)
}

func TestClipKeepsRuneBoundaries(t *testing.T) {
	got := clip(strings.Repeat("ø", 60), 50)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("ø", 50)+"...", got)
}
