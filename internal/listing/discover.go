// Package listing implements job listing discovery: paginating a FINN
// search endpoint and collecting unique listing stubs until the cap or the
// end of results.
package listing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	mapset "github.com/deckarep/golang-set/v2"
)

const (
	// MaxPages is the hard safety ceiling against runaway pagination.
	MaxPages = 10
	// PageCooldown is the delay between page fetches after the first page.
	PageCooldown = 5 * time.Second
	// maxTitleLen truncates stub titles parsed from anchor text.
	maxTitleLen = 100
)

var adPattern = regexp.MustCompile(`/job/ad/(\d+)`)

// Stub is a job listing reference found on a search results page.
type Stub struct {
	ID    string `json:"finn_code"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Result is the outcome of one discovery call.
type Result struct {
	Listings     []Stub
	Truncated    bool
	PagesFetched int
}

// PageFetcher retrieves the raw HTML of one search results page.
// Production code uses an HTTP fetcher; tests inject fakes.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (string, error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc func(ctx context.Context, pageURL string) (string, error)

func (f PageFetcherFunc) FetchPage(ctx context.Context, pageURL string) (string, error) {
	return f(ctx, pageURL)
}

// Source discovers listings from a search endpoint.
type Source struct {
	fetcher  PageFetcher
	maxPages int
	cooldown time.Duration
	sleep    func(time.Duration)
}

// Option customizes a Source.
type Option func(*Source)

// WithMaxPages overrides the page ceiling.
func WithMaxPages(n int) Option {
	return func(s *Source) { s.maxPages = n }
}

// WithCooldown overrides the inter-page delay.
func WithCooldown(d time.Duration) Option {
	return func(s *Source) { s.cooldown = d }
}

// WithSleep replaces time.Sleep, used by tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Source) { s.sleep = fn }
}

// NewSource creates a Source over the given page fetcher.
func NewSource(fetcher PageFetcher, opts ...Option) *Source {
	s := &Source{
		fetcher:  fetcher,
		maxPages: MaxPages,
		cooldown: PageCooldown,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover fetches search pages sequentially from page 1, deduplicating
// listing ids across pages, until maxListings unique stubs are collected
// (Truncated=true), a page yields no new stubs (end of results), or the
// page ceiling is hit. Any fetch or parse failure fails the whole call: the
// caller treats discovery as all-or-nothing for a profile.
func (s *Source) Discover(ctx context.Context, endpoint string, maxListings int) (*Result, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("search endpoint is empty")
	}
	if maxListings <= 0 {
		return nil, fmt.Errorf("maxListings must be positive, got %d", maxListings)
	}

	seen := mapset.NewSet[string]()
	result := &Result{}

	for page := 1; page <= s.maxPages; page++ {
		if page > 1 {
			s.sleep(s.cooldown)
		}
		result.PagesFetched = page

		html, err := s.fetcher.FetchPage(ctx, PageURL(endpoint, page))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		stubs, err := ParseSearchPage(html)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		newOnPage := 0
		for _, stub := range stubs {
			if !seen.Add(stub.ID) {
				continue
			}
			result.Listings = append(result.Listings, stub)
			newOnPage++
			if len(result.Listings) >= maxListings {
				result.Truncated = true
				return result, nil
			}
		}

		// A page with no new stubs means we ran off the end of the results.
		if newOnPage == 0 {
			return result, nil
		}
	}

	return result, nil
}

// PageURL appends the page parameter to a search endpoint. Page 1 is the
// bare endpoint, matching what the site serves by default.
func PageURL(endpoint string, page int) string {
	if page <= 1 {
		return endpoint
	}
	separator := "?"
	if strings.Contains(endpoint, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%spage=%d", endpoint, separator, page)
}

// ParseSearchPage extracts listing stubs from a search results page. Each
// anchor pointing at /job/ad/<code> yields one stub; duplicates within the
// page are collapsed.
func ParseSearchPage(html string) ([]Stub, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	seen := mapset.NewSet[string]()
	var stubs []Stub

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		match := adPattern.FindStringSubmatch(href)
		if match == nil {
			return
		}
		code := match[1]
		if !seen.Add(code) {
			return
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = "Unknown Title"
		}
		if runes := []rune(title); len(runes) > maxTitleLen {
			title = string(runes[:maxTitleLen])
		}

		stubs = append(stubs, Stub{
			ID:    code,
			Title: title,
			URL:   "https://www.finn.no/job/ad/" + code,
		})
	})

	return stubs, nil
}
