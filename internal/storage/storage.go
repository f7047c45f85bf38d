// Package storage provides the persistent key-value blob store used for
// history, run logs, notifications, reports and profile configuration.
// Keys are slash-separated paths (e.g. "data/reports/job_report_20260831.md").
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("storage: key not found")

// Well-known keys. These mirror the layout the dashboard reads.
const (
	KeyHistory       = "data/analyzed_jobs.json"
	KeyNotifications = "data/notifications.json"
	KeyRunLog        = "data/run_log.json"
	KeyRunHistory    = "data/run_history.json"
	KeyProfilesMeta  = "data/profiles.json"
	KeyReportsIndex  = "data/reports_index.json"
	KeyProfiles      = "config/search_profiles.json"
	ReportPrefix     = "data/reports/"
)

// Store is a minimal blob store. Implementations are not required to be
// safe for concurrent writers; the scanner is single-writer by design.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// List returns all keys starting with prefix, in unspecified order.
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// GetJSON loads a blob and unmarshals it into v. A missing key is reported
// as ErrNotFound so callers can fall back to a zero value.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// PutJSON marshals v with indentation and stores it under key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}

// Open dispatches on the storage URL: postgres:// and postgresql:// open a
// Postgres-backed store, redis:// and rediss:// a Redis-backed one, and
// anything else is treated as a local directory path.
func Open(ctx context.Context, storageURL string) (Store, error) {
	switch {
	case strings.HasPrefix(storageURL, "postgres://"), strings.HasPrefix(storageURL, "postgresql://"):
		return OpenPostgres(ctx, storageURL)
	case strings.HasPrefix(storageURL, "redis://"), strings.HasPrefix(storageURL, "rediss://"):
		return OpenRedis(ctx, storageURL)
	case storageURL == "":
		return nil, fmt.Errorf("storage location is empty")
	default:
		return OpenDir(storageURL)
	}
}
