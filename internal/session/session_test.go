package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraphage/engram/internal/types"
)

func openTestSession(t *testing.T) *Session {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".engram")
	require.NoError(t, Init(dir))
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Shutdown() })
	return s
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	s := openTestSession(t)
	it, err := s.Create("title", 2, []string{"a", "b"}, "desc")
	require.NoError(t, err)
	assert.Equal(t, types.StatusOpen, it.Status)

	got, err := s.Get(it.ID)
	require.NoError(t, err)
	assert.Equal(t, it.Title, got.Title)
}

func TestCreateRejectsInvalidTitle(t *testing.T) {
	s := openTestSession(t)
	_, err := s.Create("", 1, nil, "")
	assert.ErrorIs(t, err, types.ErrInvalidTitle)
}

func TestSetStatusEnforcesTransitionTable(t *testing.T) {
	s := openTestSession(t)
	it, err := s.Create("t", 1, nil, "")
	require.NoError(t, err)

	_, err = s.SetStatus(it.ID, types.StatusInProgress)
	require.NoError(t, err)

	_, err = s.SetStatus(it.ID, types.StatusClosed)
	require.NoError(t, err)

	_, err = s.SetStatus(it.ID, types.StatusInProgress)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	got, err := s.SetStatus(it.ID, types.StatusOpen)
	require.NoError(t, err)
	assert.Nil(t, got.ClosedAt)
}

func TestAddEdgeRejectsCycle(t *testing.T) {
	s := openTestSession(t)
	a, _ := s.Create("a", 1, nil, "")
	b, _ := s.Create("b", 1, nil, "")

	_, err := s.AddEdge(b.ID, a.ID, types.EdgeBlocks)
	require.NoError(t, err)

	_, err = s.AddEdge(a.ID, b.ID, types.EdgeBlocks)
	assert.ErrorIs(t, err, types.ErrWouldCreateCycle)
}

func TestAddEdgeIsIdempotent(t *testing.T) {
	s := openTestSession(t)
	a, _ := s.Create("a", 1, nil, "")
	b, _ := s.Create("b", 1, nil, "")

	e1, err := s.AddEdge(b.ID, a.ID, types.EdgeBlocks)
	require.NoError(t, err)
	e2, err := s.AddEdge(b.ID, a.ID, types.EdgeBlocks)
	require.NoError(t, err)
	assert.Equal(t, e1.CreatedAt, e2.CreatedAt)
}

func TestReadyReflectsBlockerClosure(t *testing.T) {
	s := openTestSession(t)
	a, _ := s.Create("a", 1, nil, "")
	b, _ := s.Create("b", 1, nil, "")
	_, err := s.AddEdge(b.ID, a.ID, types.EdgeBlocks)
	require.NoError(t, err)

	ready, err := s.Ready()
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, it := range ready {
		ids[it.ID] = true
	}
	assert.True(t, ids[a.ID])
	assert.False(t, ids[b.ID])

	_, err = s.CloseItem(a.ID, "done")
	require.NoError(t, err)

	ready, err = s.Ready()
	require.NoError(t, err)
	ids = map[string]bool{}
	for _, it := range ready {
		ids[it.ID] = true
	}
	assert.True(t, ids[b.ID])
}

func TestRemoveEdgeIsIdempotent(t *testing.T) {
	s := openTestSession(t)
	a, _ := s.Create("a", 1, nil, "")
	b, _ := s.Create("b", 1, nil, "")
	require.NoError(t, s.RemoveEdge(b.ID, a.ID, types.EdgeBlocks))

	_, err := s.AddEdge(b.ID, a.ID, types.EdgeBlocks)
	require.NoError(t, err)
	require.NoError(t, s.RemoveEdge(b.ID, a.ID, types.EdgeBlocks))
	require.NoError(t, s.RemoveEdge(b.ID, a.ID, types.EdgeBlocks))
}

func TestUpdateAllowsMutatingClosedItem(t *testing.T) {
	s := openTestSession(t)
	it, _ := s.Create("t", 1, nil, "")
	_, err := s.CloseItem(it.ID, "done")
	require.NoError(t, err)

	newTitle := "renamed"
	got, err := s.Update(it.ID, UpdateFields{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, types.StatusClosed, got.Status)
}

func TestReopenAcrossSessions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".engram")
	require.NoError(t, Init(dir))

	s1, err := Open(dir)
	require.NoError(t, err)
	it, err := s1.Create("t", 1, nil, "")
	require.NoError(t, err)
	require.NoError(t, s1.Shutdown())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Shutdown()

	got, err := s2.Get(it.ID)
	require.NoError(t, err)
	assert.Equal(t, it.Title, got.Title)
}

func TestOpenFailsWhenAlreadyLocked(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".engram")
	require.NoError(t, Init(dir))

	s1, err := Open(dir)
	require.NoError(t, err)
	defer s1.Shutdown()

	_, err = Open(dir)
	assert.ErrorIs(t, err, types.ErrLocked)
}
