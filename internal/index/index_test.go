package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraphage/engram/internal/types"
)

func mkItem(id string, prio int, created time.Time) *types.Item {
	return &types.Item{
		ID:        id,
		Title:     id,
		Status:    types.StatusOpen,
		Priority:  prio,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestDiamondReadiness(t *testing.T) {
	idx := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := mkItem("a", 1, base)
	b := mkItem("b", 2, base.Add(time.Millisecond))
	c := mkItem("c", 2, base.Add(2*time.Millisecond))
	d := mkItem("d", 2, base.Add(3*time.Millisecond))
	for _, it := range []*types.Item{a, b, c, d} {
		idx.Put(it)
	}

	idx.PutEdge(&types.Edge{From: "b", To: "a", Kind: types.EdgeBlocks, CreatedAt: base})
	idx.PutEdge(&types.Edge{From: "c", To: "a", Kind: types.EdgeBlocks, CreatedAt: base})
	idx.PutEdge(&types.Edge{From: "d", To: "b", Kind: types.EdgeBlocks, CreatedAt: base})
	idx.PutEdge(&types.Edge{From: "d", To: "c", Kind: types.EdgeBlocks, CreatedAt: base})

	assert.Equal(t, []string{"a"}, idOf(idx.Ready()))
	require.True(t, idx.CacheConsistent())

	closeItem(idx, "a")
	assert.Equal(t, []string{"b", "c"}, idOf(idx.Ready()))
	require.True(t, idx.CacheConsistent())

	closeItem(idx, "b")
	assert.Equal(t, []string{"c"}, idOf(idx.Ready()))

	closeItem(idx, "c")
	assert.Equal(t, []string{"d"}, idOf(idx.Ready()))
	require.True(t, idx.CacheConsistent())
}

func TestBlockedIsComplementOfReady(t *testing.T) {
	idx := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	idx.Put(mkItem("x", 0, base))
	idx.Put(mkItem("y", 0, base.Add(time.Millisecond)))
	idx.PutEdge(&types.Edge{From: "x", To: "y", Kind: types.EdgeBlocks, CreatedAt: base})

	assert.Equal(t, []string{"y"}, idOf(idx.Ready()))
	assert.Equal(t, []string{"x"}, idOf(idx.Blocked()))
}

func TestTombstoneRevivesBlockerCount(t *testing.T) {
	idx := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	idx.Put(mkItem("x", 0, base))
	idx.Put(mkItem("y", 0, base.Add(time.Millisecond)))
	idx.PutEdge(&types.Edge{From: "x", To: "y", Kind: types.EdgeBlocks, CreatedAt: base})
	assert.Equal(t, []string{"x"}, idOf(idx.Blocked()))

	idx.PutEdge(&types.Edge{From: "x", To: "y", Kind: types.EdgeBlocks, CreatedAt: base, Deleted: true})
	assert.Equal(t, []string{"x", "y"}, idOf(idx.Ready()))
	require.True(t, idx.CacheConsistent())

	idx.PutEdge(&types.Edge{From: "x", To: "y", Kind: types.EdgeBlocks, CreatedAt: base})
	assert.Equal(t, []string{"x"}, idOf(idx.Blocked()))
	require.True(t, idx.CacheConsistent())
}

func TestListFilters(t *testing.T) {
	idx := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		it := mkItem(string(rune('a'+i)), i, base.Add(time.Duration(i)*time.Millisecond))
		idx.Put(it)
	}
	filter := types.ListFilter{Status: []types.Status{types.StatusOpen}, MaxPriority: intp(1)}
	got := idx.List(filter)
	assert.Equal(t, []string{"a", "b"}, idOf(got))
}

func idOf(items []*types.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func intp(v int) *int { return &v }

func closeItem(idx *Index, id string) {
	it := idx.Get(id)
	now := it.UpdatedAt.Add(time.Second)
	it.Status = types.StatusClosed
	it.UpdatedAt = now
	it.ClosedAt = &now
	idx.Put(it)
}
