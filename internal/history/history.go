// Package history persists the per-profile record of analyzed listings.
// A (profile, listing) pair with a history entry is never re-scored; the
// store is written through after every processed listing so a crash loses
// at most one result.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eivindh/finnscan/internal/storage"
)

// SchemaVersion tags the on-disk document. Version 2 is the explicit
// {schema_version, profiles} envelope; anything without the tag is the
// legacy flat layout and is migrated once at load.
const SchemaVersion = 2

// LegacyProfileID is the partition that untagged flat-format entries are
// migrated into.
const LegacyProfileID = "_legacy"

// DateFormat is the analysis-date layout used in entries and cutoffs.
const DateFormat = "2006-01-02"

// Status discriminates how an entry came to exist instead of signaling it
// through field presence.
type Status string

const (
	// StatusAnalyzed marks a listing the oracle actually scored.
	StatusAnalyzed Status = "analyzed"
	// StatusFailed marks a listing recorded with the score-0 fallback.
	StatusFailed Status = "failed"
)

// Entry is the durable analysis result for one (profile, listing) pair.
type Entry struct {
	Title        string `json:"title"`
	Company      string `json:"company"`
	Location     string `json:"location"`
	URL          string `json:"url,omitempty"`
	Score        int    `json:"score"`
	Rationale    string `json:"reasoning"`
	Status       Status `json:"status"`
	AnalyzedDate string `json:"analyzed_date"`
}

type document struct {
	SchemaVersion int                         `json:"schema_version"`
	Profiles      map[string]map[string]Entry `json:"profiles"`
}

// Store is the history store backed by one blob.
type Store struct {
	blob storage.Store
	doc  document
}

// Load reads the history blob, migrating a legacy document if needed. A
// missing blob yields an empty store.
func Load(ctx context.Context, blob storage.Store) (*Store, error) {
	s := &Store{
		blob: blob,
		doc: document{
			SchemaVersion: SchemaVersion,
			Profiles:      make(map[string]map[string]Entry),
		},
	}

	data, err := blob.Get(ctx, storage.KeyHistory)
	if err == storage.ErrNotFound {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	if len(probe) == 0 {
		return s, nil
	}

	if _, versioned := probe["schema_version"]; versioned {
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode history document: %w", err)
		}
		if doc.Profiles == nil {
			doc.Profiles = make(map[string]map[string]Entry)
		}
		doc.SchemaVersion = SchemaVersion
		s.doc = doc
		return s, nil
	}

	// Untagged document: migrate once, then persist in the versioned shape
	// so shape-sniffing never happens again.
	migrated, err := migrateLegacy(probe)
	if err != nil {
		return nil, err
	}
	s.doc.Profiles = migrated
	if err := s.save(ctx); err != nil {
		fmt.Printf("Warning: failed to persist migrated history: %v\n", err)
	}
	return s, nil
}

// migrateLegacy converts an untagged document. Top-level values that decode
// as entries (they carry a title) belong to the old flat layout and move
// under the legacy partition; values that decode as maps of entries are
// already profile partitions.
func migrateLegacy(raw map[string]json.RawMessage) (map[string]map[string]Entry, error) {
	profiles := make(map[string]map[string]Entry)

	for key, value := range raw {
		var entry Entry
		if err := json.Unmarshal(value, &entry); err == nil && entry.Title != "" {
			if profiles[LegacyProfileID] == nil {
				profiles[LegacyProfileID] = make(map[string]Entry)
			}
			if entry.Status == "" {
				entry.Status = StatusAnalyzed
			}
			profiles[LegacyProfileID][key] = entry
			continue
		}

		var partition map[string]Entry
		if err := json.Unmarshal(value, &partition); err != nil {
			return nil, fmt.Errorf("unrecognized history shape under %q: %w", key, err)
		}
		for id, e := range partition {
			if e.Status == "" {
				e.Status = StatusAnalyzed
				partition[id] = e
			}
		}
		profiles[key] = partition
	}

	return profiles, nil
}

func (s *Store) save(ctx context.Context) error {
	return storage.PutJSON(ctx, s.blob, storage.KeyHistory, s.doc)
}

// Seen reports whether the (profile, listing) pair already has an entry.
// History is partitioned per profile: the same listing under a different
// profile is still eligible there.
func (s *Store) Seen(profileID, listingID string) bool {
	partition, ok := s.doc.Profiles[profileID]
	if !ok {
		return false
	}
	_, ok = partition[listingID]
	return ok
}

// Record stores an entry and writes the history through to storage
// immediately.
func (s *Store) Record(ctx context.Context, profileID, listingID string, entry Entry) error {
	if s.doc.Profiles[profileID] == nil {
		s.doc.Profiles[profileID] = make(map[string]Entry)
	}
	s.doc.Profiles[profileID][listingID] = entry
	return s.save(ctx)
}

// PurgeOlderThan removes entries whose analysis date is strictly before the
// cutoff and persists the result when anything changed. Returns the number
// of removed entries.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	cutoffStr := cutoff.Format(DateFormat)
	removed := 0

	for _, partition := range s.doc.Profiles {
		for listingID, entry := range partition {
			if entry.AnalyzedDate != "" && entry.AnalyzedDate < cutoffStr {
				delete(partition, listingID)
				removed++
			}
		}
	}

	if removed > 0 {
		if err := s.save(ctx); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Size returns the total number of entries across all profiles.
func (s *Store) Size() int {
	total := 0
	for _, partition := range s.doc.Profiles {
		total += len(partition)
	}
	return total
}

// Entries returns a copy of one profile's partition.
func (s *Store) Entries(profileID string) map[string]Entry {
	out := make(map[string]Entry, len(s.doc.Profiles[profileID]))
	for id, entry := range s.doc.Profiles[profileID] {
		out[id] = entry
	}
	return out
}

// All returns a copy of every partition, keyed by profile id.
func (s *Store) All() map[string]map[string]Entry {
	out := make(map[string]map[string]Entry, len(s.doc.Profiles))
	for profileID := range s.doc.Profiles {
		out[profileID] = s.Entries(profileID)
	}
	return out
}
