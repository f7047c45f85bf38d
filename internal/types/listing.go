// Package types provides type definitions for structured data shared across
// the scanner pipeline, report generator and API server.
package types

// Score bucket boundaries used for report stats and summaries.
const (
	HighScoreMin   = 70
	MediumScoreMin = 40
)

// Listing is one analyzed job listing as it flows out of a scan run: the
// parsed detail fields plus the oracle's verdict, tagged with the profile
// that matched it.
type Listing struct {
	ID          string `json:"id"`
	ProfileID   string `json:"profile_id"`
	ProfileName string `json:"profile_name"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Rationale   string `json:"reasoning"`
	Status      string `json:"status"`
}

// IsHigh reports whether the listing falls in the high score bucket.
func (l Listing) IsHigh() bool { return l.Score >= HighScoreMin }

// IsMedium reports whether the listing falls in the medium score bucket.
func (l Listing) IsMedium() bool { return l.Score >= MediumScoreMin && l.Score < HighScoreMin }
