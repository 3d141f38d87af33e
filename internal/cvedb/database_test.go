package cvedb

import (
	"context"
	"path/filepath"
	"testing"

	"CveDash/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *CVEDatabase {
	t.Helper()
	db, err := NewCVEDatabase(filepath.Join(t.TempDir(), "data", "cves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReplaceSnapshot(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	records := Rank(SeedCVEs(), 10)
	require.NoError(t, db.ReplaceSnapshot(ctx, SnapshotMeta{RunID: "run-1", Source: "test", KEVCount: 4}, records))

	count, err := db.GetCveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	listed, err := db.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, listed)

	cve, err := db.Get(ctx, "CVE-2024-3094")
	require.NoError(t, err)
	assert.Equal(t, []string{"xz-utils", "liblzma"}, cve.AffectedSoftware)

	_, err = db.Get(ctx, "CVE-1999-0001")
	assert.ErrorIs(t, err, ErrNotFound)

	// 第二次快照完全替换第一次
	require.NoError(t, db.ReplaceSnapshot(ctx, SnapshotMeta{RunID: "run-2", Source: "test", Partial: true}, records[:2]))
	count, err = db.GetCveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	history, err := db.GetUpdateHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-2", history[0].RunID)
	assert.True(t, history[0].Partial)
	assert.Equal(t, 2, history[0].Records)
	assert.Equal(t, "run-1", history[1].RunID)
	assert.Equal(t, 4, history[1].KEVCount)
	assert.False(t, history[1].LastUpdate.IsZero())
}

func TestLookupByProduct(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	records := []model.CVE{
		{ID: "CVE-2021-44228", CVSS: ptr(10), AffectedSoftware: []string{"apache:log4j", "cisco:identity_services_engine"}, Year: 2021, Exploits: []model.Exploit{}},
		{ID: "CVE-2022-26134", CVSS: ptr(9.8), AffectedSoftware: []string{"atlassian:confluence_server", "atlassian:confluence_data_center"}, Year: 2022, Exploits: []model.Exploit{}},
		{ID: "CVE-2023-22515", CVSS: ptr(9.8), AffectedSoftware: []string{"atlassian:confluence_data_center"}, Year: 2023, Exploits: []model.Exploit{}},
	}
	require.NoError(t, db.ReplaceSnapshot(ctx, SnapshotMeta{RunID: "run-1"}, records))

	found, err := db.LookupByProduct(ctx, "Confluence")
	require.NoError(t, err)
	assert.Equal(t, []string{"CVE-2022-26134", "CVE-2023-22515"}, rankedIDs(found))

	found, err = db.LookupByProduct(ctx, "nginx")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGetUpdateHistoryEmpty(t *testing.T) {
	history, err := newTestDatabase(t).GetUpdateHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}
