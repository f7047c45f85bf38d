package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Per-profile defaults matching the hosted scanner's behavior.
const (
	DefaultMinimumScore          = 30
	DefaultMaxListings           = 25
	DefaultNotificationThreshold = 50
)

// profilesSchema validates the search-profiles document shape before any
// profile is parsed. Unknown per-profile keys are rejected so typos in
// uploaded configs surface immediately.
const profilesSchema = `{
  "type": "object",
  "minProperties": 1,
  "additionalProperties": {
    "type": "object",
    "required": ["search_url", "profile"],
    "properties": {
      "name": {"type": "string"},
      "enabled": {"type": "boolean"},
      "search_url": {"type": "string", "minLength": 1},
      "profile": {"type": "string", "minLength": 1},
      "minimum_score": {"type": "integer", "minimum": 0, "maximum": 100},
      "max_jobs": {"type": "integer", "minimum": 1},
      "notification_threshold": {"type": "integer", "minimum": 0, "maximum": 100}
    },
    "additionalProperties": false
  }
}`

// Profile is one search profile: a FINN search URL plus the candidate
// criteria text the oracle scores against. Pointer fields distinguish
// "absent, use default" from an explicit zero.
type Profile struct {
	ID                    string `json:"-"`
	Name                  string `json:"name,omitempty"`
	Enabled               *bool  `json:"enabled,omitempty"`
	SearchURL             string `json:"search_url"`
	Criteria              string `json:"profile"`
	MinimumScore          *int   `json:"minimum_score,omitempty"`
	MaxListings           *int   `json:"max_jobs,omitempty"`
	NotificationThreshold *int   `json:"notification_threshold,omitempty"`
}

// DisplayName returns the profile name, falling back to the id.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// IsEnabled reports whether the profile participates in scans (default true).
func (p *Profile) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// MinScore returns the report inclusion floor.
func (p *Profile) MinScore() int {
	if p.MinimumScore != nil {
		return *p.MinimumScore
	}
	return DefaultMinimumScore
}

// MaxJobs returns the per-run listing cap.
func (p *Profile) MaxJobs() int {
	if p.MaxListings != nil {
		return *p.MaxListings
	}
	return DefaultMaxListings
}

// NotifyThreshold returns the score at which a notification is created.
func (p *Profile) NotifyThreshold() int {
	if p.NotificationThreshold != nil {
		return *p.NotificationThreshold
	}
	return DefaultNotificationThreshold
}

// ProfileSet holds the parsed profiles in document order. Report sections
// follow this order, so it must survive the JSON round trip.
type ProfileSet struct {
	Profiles []*Profile
	raw      []byte
}

// ParseProfiles validates and parses a search-profiles JSON document.
// Profile order follows the document's key order.
func ParseProfiles(data []byte) (*ProfileSet, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(profilesSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate profiles config: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, &ValidationError{Problems: msgs}
	}

	ids, err := objectKeyOrder(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profiles config: %w", err)
	}

	var byID map[string]*Profile
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, fmt.Errorf("failed to parse profiles config: %w", err)
	}

	set := &ProfileSet{raw: append([]byte(nil), data...)}
	for _, id := range ids {
		p := byID[id]
		p.ID = id
		set.Profiles = append(set.Profiles, p)
	}
	return set, nil
}

// Enabled returns the enabled profiles in document order.
func (s *ProfileSet) Enabled() []*Profile {
	var out []*Profile
	for _, p := range s.Profiles {
		if p.IsEnabled() {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the profile with the given id, or nil.
func (s *ProfileSet) Get(id string) *Profile {
	for _, p := range s.Profiles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Raw returns the original document bytes, preserving key order and any
// formatting the uploader chose.
func (s *ProfileSet) Raw() []byte {
	return append([]byte(nil), s.raw...)
}

// ValidationError aggregates schema violations in a profiles document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid profiles config: %s", strings.Join(e.Problems, "; "))
}

// objectKeyOrder returns the top-level keys of a JSON object in document
// order. encoding/json maps are unordered, so the order is recovered from
// the token stream.
func objectKeyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		keys = append(keys, tok.(string))

		// Skip the value.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
