package listing

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchPage renders a minimal results page containing the given ad codes.
func searchPage(codes ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, code := range codes {
		fmt.Fprintf(&b, `<a href="/job/ad/%s">Stilling %s</a>`, code, code)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// pagedFetcher serves one canned page per request and records URLs.
type pagedFetcher struct {
	pages []string
	urls  []string
}

func (f *pagedFetcher) FetchPage(_ context.Context, pageURL string) (string, error) {
	f.urls = append(f.urls, pageURL)
	idx := len(f.urls) - 1
	if idx >= len(f.pages) {
		return searchPage(), nil
	}
	return f.pages[idx], nil
}

func noSleep(time.Duration) {}

func TestDiscover_TerminatesOnZeroYieldPage(t *testing.T) {
	fetcher := &pagedFetcher{pages: []string{
		searchPage("100", "101", "102"),
		searchPage("103"),
		searchPage(), // end of results
	}}
	source := NewSource(fetcher, WithSleep(noSleep))

	result, err := source.Discover(context.Background(), "https://www.finn.no/job/search?location=0.20001", 50)
	require.NoError(t, err)
	assert.Len(t, result.Listings, 4)
	assert.False(t, result.Truncated)
	assert.Equal(t, 3, result.PagesFetched)
}

func TestDiscover_CapEnforcement(t *testing.T) {
	fetcher := &pagedFetcher{pages: []string{
		searchPage("1", "2", "3", "4", "5"),
		searchPage("6", "7", "8", "9", "10"),
	}}
	source := NewSource(fetcher, WithSleep(noSleep))

	result, err := source.Discover(context.Background(), "https://example.com/search", 7)
	require.NoError(t, err)
	assert.Len(t, result.Listings, 7)
	assert.True(t, result.Truncated)
	assert.Equal(t, "7", result.Listings[6].ID)
}

func TestDiscover_DeduplicatesAcrossPages(t *testing.T) {
	fetcher := &pagedFetcher{pages: []string{
		searchPage("1", "2"),
		searchPage("2", "3"), // "2" repeats on page 2
		searchPage("3"),      // nothing new
	}}
	source := NewSource(fetcher, WithSleep(noSleep))

	result, err := source.Discover(context.Background(), "https://example.com/search", 50)
	require.NoError(t, err)

	ids := make([]string, 0, len(result.Listings))
	for _, stub := range result.Listings {
		ids = append(ids, stub.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.False(t, result.Truncated)
}

func TestDiscover_PageCeiling(t *testing.T) {
	calls := 0
	fetcher := PageFetcherFunc(func(_ context.Context, _ string) (string, error) {
		calls++
		// Every page yields one fresh listing, so only the ceiling stops us.
		return searchPage(fmt.Sprintf("%d", calls)), nil
	})
	source := NewSource(fetcher, WithSleep(noSleep), WithMaxPages(4))

	result, err := source.Discover(context.Background(), "https://example.com/search", 100)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, result.PagesFetched)
	assert.Len(t, result.Listings, 4)
}

func TestDiscover_FetchErrorFailsWholeCall(t *testing.T) {
	fetcher := PageFetcherFunc(func(_ context.Context, _ string) (string, error) {
		return "", fmt.Errorf("connection refused")
	})
	source := NewSource(fetcher, WithSleep(noSleep))

	_, err := source.Discover(context.Background(), "https://example.com/search", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1")
}

func TestDiscover_CooldownBetweenPagesOnly(t *testing.T) {
	fetcher := &pagedFetcher{pages: []string{
		searchPage("1"),
		searchPage("2"),
		searchPage(),
	}}
	var sleeps []time.Duration
	source := NewSource(fetcher,
		WithCooldown(5*time.Second),
		WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }))

	_, err := source.Discover(context.Background(), "https://example.com/search", 10)
	require.NoError(t, err)
	// Three pages fetched, but no sleep before the first.
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeps)
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://x.no/job/search?industry=65", PageURL("https://x.no/job/search?industry=65", 1))
	assert.Equal(t, "https://x.no/job/search?industry=65&page=2", PageURL("https://x.no/job/search?industry=65", 2))
	assert.Equal(t, "https://x.no/job/search?page=3", PageURL("https://x.no/job/search", 3))
}

func TestParseSearchPage_TitleFallbackAndTruncation(t *testing.T) {
	long := strings.Repeat("x", 150)
	html := fmt.Sprintf(`<html><body>
		<a href="/job/ad/42"></a>
		<a href="/job/ad/43">%s</a>
		<a href="/about">Om FINN</a>
	</body></html>`, long)

	stubs, err := ParseSearchPage(html)
	require.NoError(t, err)
	require.Len(t, stubs, 2)
	assert.Equal(t, "Unknown Title", stubs[0].Title)
	assert.Equal(t, "https://www.finn.no/job/ad/42", stubs[0].URL)
	assert.Len(t, stubs[1].Title, 100)
}

func TestParseSearchPage_TruncatesTitleAtRuneBoundary(t *testing.T) {
	long := strings.Repeat("a", 99) + "økonomiansvarlig"
	html := fmt.Sprintf(`<html><body><a href="/job/ad/44">%s</a></body></html>`, long)

	stubs, err := ParseSearchPage(html)
	require.NoError(t, err)
	require.Len(t, stubs, 1)

	assert.True(t, utf8.ValidString(stubs[0].Title))
	assert.Equal(t, strings.Repeat("a", 99)+"ø", stubs[0].Title)
}
