package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eivindh/finnscan/internal/history"
	"github.com/eivindh/finnscan/internal/report"
	"github.com/eivindh/finnscan/internal/storage"
)

func TestCleanupDeletesOldReports(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	old := now.AddDate(0, 0, -12)
	fresh := now.AddDate(0, 0, -2)
	require.NoError(t, blob.Put(ctx, report.Key(old), []byte("# old")))
	require.NoError(t, blob.Put(ctx, report.Key(fresh), []byte("# fresh")))

	hist, err := history.Load(ctx, blob)
	require.NoError(t, err)

	stats, err := CleanupAt(ctx, blob, hist, 10, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DeletedReports)

	_, err = blob.Get(ctx, report.Key(old))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = blob.Get(ctx, report.Key(fresh))
	assert.NoError(t, err)
}

func TestCleanupPurgesHistory(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	hist, err := history.Load(ctx, blob)
	require.NoError(t, err)
	require.NoError(t, hist.Record(ctx, "backend", "1", history.Entry{
		Title: "Old", Status: history.StatusAnalyzed, AnalyzedDate: "2026-03-01",
	}))
	require.NoError(t, hist.Record(ctx, "backend", "2", history.Entry{
		Title: "Fresh", Status: history.StatusAnalyzed, AnalyzedDate: "2026-03-14",
	}))

	stats, err := CleanupAt(ctx, blob, hist, 10, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PurgedEntries)
	assert.False(t, hist.Seen("backend", "1"))
	assert.True(t, hist.Seen("backend", "2"))
}

func TestCleanupRefreshesIndex(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	old := now.AddDate(0, 0, -20)
	require.NoError(t, blob.Put(ctx, report.Key(old), []byte("# old")))

	hist, err := history.Load(ctx, blob)
	require.NoError(t, err)

	_, err = CleanupAt(ctx, blob, hist, 10, now)
	require.NoError(t, err)

	var index []report.IndexEntry
	require.NoError(t, storage.GetJSON(ctx, blob, storage.KeyReportsIndex, &index))
	assert.Empty(t, index)
}

func TestCleanupIgnoresUnparsableReportKeys(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, blob.Put(ctx, storage.ReportPrefix+"scratch.md", []byte("x")))

	hist, err := history.Load(ctx, blob)
	require.NoError(t, err)

	stats, err := CleanupAt(ctx, blob, hist, 10, now)
	require.NoError(t, err)
	assert.Zero(t, stats.DeletedReports)

	_, err = blob.Get(ctx, storage.ReportPrefix+"scratch.md")
	assert.NoError(t, err)
}

func TestCleanupDefaultsDays(t *testing.T) {
	blob := storage.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	boundary := now.AddDate(0, 0, -DefaultRetentionDays)
	require.NoError(t, blob.Put(ctx, report.Key(boundary), []byte("# boundary")))

	hist, err := history.Load(ctx, blob)
	require.NoError(t, err)

	stats, err := CleanupAt(ctx, blob, hist, 0, now)
	require.NoError(t, err)
	assert.Zero(t, stats.DeletedReports)
}
