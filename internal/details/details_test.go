package details

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adPage = `
<html>
<body>
	<nav>Meny</nav>
	<main>
		<h1>Senior Go-utvikler</h1>
		<a href="/job/employer/company/12345">Kystverket AS</a>
		<a href="/job/search?location=1.20001.20015">Ålesund</a>
		<p>Vi søker en erfaren utvikler til vårt team.</p>
		<script>analytics()</script>
	</main>
	<footer>FINN.no</footer>
</body>
</html>`

func TestParse_ExtractsFields(t *testing.T) {
	d, err := Parse(adPage)
	require.NoError(t, err)

	assert.Equal(t, "Senior Go-utvikler", d.Title)
	assert.Equal(t, "Kystverket AS", d.Company)
	assert.Equal(t, "Ålesund", d.Location)
	assert.Contains(t, d.Description, "erfaren utvikler")
	assert.NotContains(t, d.Description, "analytics")
	assert.NotContains(t, d.Description, "FINN.no")
}

func TestParse_OrgIdFallbackForCompany(t *testing.T) {
	html := `<html><body><main>
		<h1>Regnskapsfører</h1>
		<a href="/job/search?orgId=998">Sparebank 1</a>
	</main></body></html>`

	d, err := Parse(html)
	require.NoError(t, err)
	assert.Equal(t, "Sparebank 1", d.Company)
}

func TestParse_TruncatesLongDescriptions(t *testing.T) {
	body := strings.Repeat("lang beskrivelse ", 500)
	html := fmt.Sprintf("<html><body><main><h1>T</h1><p>%s</p></main></body></html>", body)

	d, err := Parse(html)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(d.Description, TruncationMarker))
	assert.LessOrEqual(t, len(d.Description), MaxDescriptionChars+len(TruncationMarker))
}

func TestParse_TruncationKeepsRuneBoundaries(t *testing.T) {
	body := strings.Repeat("blåbærsyltetøy ", 400)
	html := fmt.Sprintf("<html><body><main><h1>T</h1><p>%s</p></main></body></html>", body)

	d, err := Parse(html)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(d.Description, TruncationMarker))
	assert.True(t, utf8.ValidString(d.Description))

	trimmed := strings.TrimSuffix(d.Description, TruncationMarker)
	assert.Equal(t, MaxDescriptionChars, utf8.RuneCountInString(trimmed))
}

func TestFetch_ReturnsErrorOnHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(nil, false, false)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestFetch_ParsesServedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(adPage))
	}))
	defer server.Close()

	fetcher := NewFetcher(nil, false, false)
	d, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go-utvikler", d.Title)
}

func TestPromptText(t *testing.T) {
	d := &Details{
		Title:       "Utvikler",
		Company:     "ACME",
		Location:    "Oslo",
		Description: "Beskrivelse her.",
	}

	text := d.PromptText()
	assert.Contains(t, text, "Title: Utvikler\n")
	assert.Contains(t, text, "Company: ACME\n")
	assert.Contains(t, text, "Location: Oslo\n")
	assert.Contains(t, text, "Job Description:\nBeskrivelse her.")
}

func TestPromptText_OmitsEmptyFields(t *testing.T) {
	d := &Details{Description: "Bare tekst."}
	text := d.PromptText()
	assert.NotContains(t, text, "Company:")
	assert.NotContains(t, text, "Location:")
	assert.Contains(t, text, "Job Description:\nBare tekst.")
}
