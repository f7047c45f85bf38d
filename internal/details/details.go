// Package details retrieves and normalizes a single job ad page into a
// bounded plain-text description for scoring.
package details

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/eivindh/finnscan/internal/fetch"
)

// MaxDescriptionChars bounds the flattened description fed to the scoring
// oracle. Longer pages are cut and marked.
const MaxDescriptionChars = 4000

// TruncationMarker is appended when the description was cut.
const TruncationMarker = "..."

// Details is the normalized content of one job ad page.
type Details struct {
	Title       string
	Company     string
	Location    string
	Description string
}

// Fetcher retrieves job ad pages. A nil options value uses the defaults.
type Fetcher struct {
	opts       *fetch.Options
	useBrowser bool
	verbose    bool
}

// NewFetcher creates a detail fetcher.
func NewFetcher(opts *fetch.Options, useBrowser, verbose bool) *Fetcher {
	if opts == nil {
		opts = fetch.DefaultOptions()
	}
	return &Fetcher{opts: opts, useBrowser: useBrowser, verbose: verbose}
}

// Fetch retrieves and parses one job ad page. Errors here are recovered
// per listing by the caller: the listing is recorded with score 0, the
// profile and the run continue.
func (f *Fetcher) Fetch(ctx context.Context, listingURL string) (*Details, error) {
	result, err := fetch.URL(ctx, listingURL, f.opts)
	if err != nil {
		return nil, err
	}

	html := result.HTML
	if f.useBrowser {
		if text, terr := fetch.ExtractMainText(html, fetch.JobPageSelectors()); terr == nil && fetch.ShouldUseBrowser(text) {
			rendered, berr := fetch.WithBrowser(ctx, listingURL, f.opts.Timeout, f.verbose)
			if berr == nil {
				html = rendered
			}
		}
	}

	return Parse(html)
}

// Parse extracts title, company, location and the flattened description
// from a job ad page.
func Parse(html string) (*Details, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	d := &Details{}

	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		d.Title = strings.TrimSpace(h1.Text())
	}

	// Employer link formats vary between ad layouts; try both.
	company := doc.Find(`a[href*="/job/employer/company/"]`).First()
	if company.Length() == 0 {
		company = doc.Find(`a[href*="/job/search?orgId="]`).First()
	}
	if company.Length() > 0 {
		d.Company = strings.TrimSpace(company.Text())
	}

	if location := doc.Find(`a[href*="/job/search?location="]`).First(); location.Length() > 0 {
		d.Location = strings.TrimSpace(location.Text())
	}

	text, err := fetch.ExtractMainText(html, fetch.JobPageSelectors())
	if err != nil {
		return nil, err
	}
	if runes := []rune(text); len(runes) > MaxDescriptionChars {
		text = string(runes[:MaxDescriptionChars]) + TruncationMarker
	}
	d.Description = text

	return d, nil
}

// PromptText renders the details into the labelled plain-text form the
// scoring prompt expects.
func (d *Details) PromptText() string {
	var b strings.Builder
	if d.Title != "" {
		b.WriteString("Title: " + d.Title + "\n")
	}
	if d.Company != "" {
		b.WriteString("Company: " + d.Company + "\n")
	}
	if d.Location != "" {
		b.WriteString("Location: " + d.Location + "\n")
	}
	b.WriteString("\nJob Description:\n")
	b.WriteString(d.Description)
	return b.String()
}
