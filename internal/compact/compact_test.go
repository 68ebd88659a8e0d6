package compact

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraphage/engram/internal/index"
	"github.com/neuraphage/engram/internal/store"
	"github.com/neuraphage/engram/internal/types"
)

func newStore(t *testing.T) (*store.Store, *index.Index) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".engram")
	st, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, index.New()
}

func TestCompactTrimsOldClosedDescriptions(t *testing.T) {
	st, idx := newStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	closedAt := now.Add(-40 * 24 * time.Hour)

	old := &types.Item{
		ID: "eg-1", Title: "old", Description: "a very long description",
		Status: types.StatusClosed, ClosedAt: &closedAt, CreatedAt: closedAt, UpdatedAt: closedAt,
	}
	recentClosedAt := now.Add(-1 * 24 * time.Hour)
	recent := &types.Item{
		ID: "eg-2", Title: "recent", Description: "keep me",
		Status: types.StatusClosed, ClosedAt: &recentClosedAt, CreatedAt: recentClosedAt, UpdatedAt: recentClosedAt,
	}
	require.NoError(t, st.AppendItem(old))
	require.NoError(t, st.AppendItem(recent))
	idx.Put(old)
	idx.Put(recent)

	res, err := Run(st, idx, types.CompactConfig{OlderThanDays: 30, DropDescription: true}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsRewritten)

	assert.Equal(t, "", idx.Get("eg-1").Description)
	assert.Equal(t, "keep me", idx.Get("eg-2").Description)
}

func TestCompactTruncatesToMaxLen(t *testing.T) {
	st, idx := newStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	closedAt := now.Add(-100 * 24 * time.Hour)
	it := &types.Item{
		ID: "eg-1", Title: "old", Description: "0123456789",
		Status: types.StatusClosed, ClosedAt: &closedAt, CreatedAt: closedAt, UpdatedAt: closedAt,
	}
	require.NoError(t, st.AppendItem(it))
	idx.Put(it)

	_, err := Run(st, idx, types.CompactConfig{OlderThanDays: 1, MaxDescriptionLen: 4}, now)
	require.NoError(t, err)
	assert.Equal(t, "0123", idx.Get("eg-1").Description)
}

func TestCompactDropsTombstonedEdgesFromSnapshot(t *testing.T) {
	st, idx := newStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := &types.Item{ID: "a", Title: "a", Status: types.StatusOpen, CreatedAt: now, UpdatedAt: now}
	b := &types.Item{ID: "b", Title: "b", Status: types.StatusOpen, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.AppendItem(a))
	require.NoError(t, st.AppendItem(b))
	idx.Put(a)
	idx.Put(b)

	edge := &types.Edge{From: "b", To: "a", Kind: types.EdgeBlocks, CreatedAt: now}
	require.NoError(t, st.AppendEdge(edge))
	idx.PutEdge(edge)

	tombstone := &types.Edge{From: "b", To: "a", Kind: types.EdgeBlocks, CreatedAt: now, Deleted: true}
	require.NoError(t, st.AppendEdge(tombstone))
	idx.PutEdge(tombstone)

	res, err := Run(st, idx, types.CompactConfig{OlderThanDays: 9999}, now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.EdgeCount)
}
