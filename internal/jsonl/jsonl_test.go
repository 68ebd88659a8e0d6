package jsonl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndScanRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "log.jsonl")

	f, err := OpenAppend(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, AppendLine(f, []byte(`{"a":1}`)))
	require.NoError(t, AppendLine(f, []byte(`{"a":2}`)))

	var lines []string
	res, err := Scan(path, func(line []byte) error {
		lines = append(lines, string(line))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Lines)
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`}, lines)
}

func TestScanMissingFileIsEmpty(t *testing.T) {
	res, err := Scan(filepath.Join(t.TempDir(), "missing.jsonl"), func(line []byte) error {
		t.Fatal("should not be called")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Lines)
}

func TestScanSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n\n{\"a\":2}\n"), 0o644))

	var count int
	_, err := Scan(path, func(line []byte) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestScanDetectsPartialTrailingLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n{\"a\":2"), 0o644))

	var complete []string
	res, err := Scan(path, func(line []byte) error {
		complete = append(complete, string(line))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`}, complete)
	assert.Equal(t, len(`{"a":2`), res.TruncatedBytes)

	require.NoError(t, TruncatePartial(path, res))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", string(data))
}

func TestRotateCompactedReplacesContentAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	require.NoError(t, RotateCompacted(path, [][]byte{[]byte(`{"a":1}`), []byte(`{"a":2}`)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"a\":2}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not survive a successful rotation")
}
