package scoring

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSONObject locates a JSON object inside an oracle response.
// Accepted forms, in order: a fenced ```json block, then the first
// balanced brace pair in the text (which also covers raw JSON). Returns ""
// when no object can be located.
func ExtractJSONObject(text string) string {
	text = strings.TrimSpace(text)

	if match := fencedBlock.FindStringSubmatch(text); match != nil {
		text = match[1]
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// rawResult tolerates a float score; models occasionally emit "score": 85.0.
type rawResult struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// ParseResult decodes a scoring response permissively and clamps the score
// into [0, 100].
func ParseResult(response string) (Result, error) {
	jsonText := ExtractJSONObject(response)
	if jsonText == "" {
		return Result{}, &ParseError{
			Message:  "no JSON object found in response",
			Response: response,
		}
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return Result{}, &ParseError{
			Message:  "invalid JSON",
			Response: response,
			Cause:    err,
		}
	}

	score := int(math.Round(raw.Score))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Result{Score: score, Rationale: raw.Reasoning}, nil
}
