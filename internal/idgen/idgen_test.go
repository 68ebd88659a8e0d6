package idgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := New("Fix the bug", ts)
	b := New("Fix the bug", ts)
	assert.Equal(t, a, b)
	assert.Truef(t, len(a) == len(Prefix)+idLen, "unexpected id shape: %s", a)
	assert.Equal(t, Prefix, a[:len(Prefix)])
}

func TestNewDiffersByTitleOrTime(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := New("Fix the bug", ts)
	b := New("Fix another bug", ts)
	c := New("Fix the bug", ts.Add(time.Millisecond))
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestUniquePerturbsOnCollision(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first := New("dup", ts)

	seen := map[string]bool{first: true}
	exists := func(id string) bool { return seen[id] }

	id, usedTime := Unique("dup", ts, exists)
	require.NotEqual(t, first, id)
	assert.True(t, usedTime.After(ts))
	assert.Equal(t, New("dup", usedTime), id)
}
