// Package store implements the append-only log that is the source of
// truth for the engine: two parallel JSONL streams, one for items and one
// for edges, with fsynced appends and a deterministic replay.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neuraphage/engram/internal/jsonl"
	"github.com/neuraphage/engram/internal/types"
)

const (
	ItemsFile = "items.jsonl"
	EdgesFile = "edges.jsonl"
)

// Store is the two-log append-only store rooted at a store directory
// (typically <root>/.engram).
type Store struct {
	dir        string
	itemsFile  *os.File
	edgesFile  *os.File
	failStop   bool // set once an append fails; refuses further writes until reopened
}

// OpenForInit creates the store skeleton (items/edges logs) under dir,
// failing with types.ErrAlreadyInitialized if either log file already
// exists. The returned Store is open; callers that only want the
// initialization side effect should Close it immediately.
func OpenForInit(dir string) (*Store, error) {
	itemsPath := filepath.Join(dir, ItemsFile)
	edgesPath := filepath.Join(dir, EdgesFile)
	if pathExists(itemsPath) || pathExists(edgesPath) {
		return nil, types.ErrAlreadyInitialized
	}
	return Open(dir)
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Open opens (creating if absent) the items and edges logs under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating store directory %s: %v", types.ErrIO, dir, err)
	}
	itemsPath := filepath.Join(dir, ItemsFile)
	edgesPath := filepath.Join(dir, EdgesFile)

	itemsFile, err := jsonl.OpenAppend(itemsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	edgesFile, err := jsonl.OpenAppend(edgesPath)
	if err != nil {
		itemsFile.Close()
		return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}

	return &Store{dir: dir, itemsFile: itemsFile, edgesFile: edgesFile}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// Close closes the underlying log files.
func (s *Store) Close() error {
	var firstErr error
	if err := s.itemsFile.Close(); err != nil {
		firstErr = err
	}
	if err := s.edgesFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// AppendItem atomically appends an item record. Once an append fails the
// store fail-stops: every subsequent write returns an ErrIO fail-stop error
// without attempting the I/O, per the spec's propagation policy.
func (s *Store) AppendItem(item *types.Item) error {
	if s.failStop {
		return fmt.Errorf("%w: store is in fail-stop state from a prior write failure", types.ErrIO)
	}
	line, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("%w: marshaling item: %v", types.ErrIO, err)
	}
	if err := jsonl.AppendLine(s.itemsFile, line); err != nil {
		s.failStop = true
		return fmt.Errorf("%w: appending item: %v", types.ErrIO, err)
	}
	return nil
}

// AppendEdge atomically appends an edge record (including tombstones).
func (s *Store) AppendEdge(edge *types.Edge) error {
	if s.failStop {
		return fmt.Errorf("%w: store is in fail-stop state from a prior write failure", types.ErrIO)
	}
	line, err := json.Marshal(edge)
	if err != nil {
		return fmt.Errorf("%w: marshaling edge: %v", types.ErrIO, err)
	}
	if err := jsonl.AppendLine(s.edgesFile, line); err != nil {
		s.failStop = true
		return fmt.Errorf("%w: appending edge: %v", types.ErrIO, err)
	}
	return nil
}

// ReplaySink receives every item and edge record in insertion order during
// replay; it is the index builder's write path.
type ReplaySink interface {
	ApplyItem(item *types.Item)
	ApplyEdge(edge *types.Edge)
}

// Replay streams every record in both logs, in insertion order, to sink.
// A partial final line in either file is truncated and reported via the
// returned Diagnostics rather than treated as fatal corruption — only a
// line that fails to parse as JSON is reported as Corrupted.
func Replay(dir string, sink ReplaySink) (Diagnostics, error) {
	var diag Diagnostics

	itemsPath := filepath.Join(dir, ItemsFile)
	edgesPath := filepath.Join(dir, EdgesFile)

	itemsRes, err := jsonl.Scan(itemsPath, func(line []byte) error {
		var item types.Item
		if err := json.Unmarshal(line, &item); err != nil {
			return fmt.Errorf("%w: %v", types.ErrCorrupted, err)
		}
		sink.ApplyItem(&item)
		return nil
	})
	if err != nil {
		return diag, err
	}
	if itemsRes.TruncatedBytes > 0 {
		diag.TruncatedItemsBytes = itemsRes.TruncatedBytes
		if err := jsonl.TruncatePartial(itemsPath, itemsRes); err != nil {
			return diag, fmt.Errorf("%w: %v", types.ErrIO, err)
		}
	}

	edgesRes, err := jsonl.Scan(edgesPath, func(line []byte) error {
		var edge types.Edge
		if err := json.Unmarshal(line, &edge); err != nil {
			return fmt.Errorf("%w: %v", types.ErrCorrupted, err)
		}
		sink.ApplyEdge(&edge)
		return nil
	})
	if err != nil {
		return diag, err
	}
	if edgesRes.TruncatedBytes > 0 {
		diag.TruncatedEdgesBytes = edgesRes.TruncatedBytes
		if err := jsonl.TruncatePartial(edgesPath, edgesRes); err != nil {
			return diag, fmt.Errorf("%w: %v", types.ErrIO, err)
		}
	}

	return diag, nil
}

// Diagnostics reports non-fatal anomalies discovered during replay.
type Diagnostics struct {
	TruncatedItemsBytes int
	TruncatedEdgesBytes int
}

// RotateCompacted replaces both logs with the given compacted snapshots via
// write-temp/fsync/rename. The store must be closed and reopened by the
// caller afterwards is not required: RotateCompacted reopens its own file
// handles in place.
func (s *Store) RotateCompacted(items []*types.Item, edges []*types.Edge) error {
	itemLines := make([][]byte, 0, len(items))
	for _, it := range items {
		line, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("%w: marshaling item for compaction: %v", types.ErrIO, err)
		}
		itemLines = append(itemLines, line)
	}
	edgeLines := make([][]byte, 0, len(edges))
	for _, e := range edges {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("%w: marshaling edge for compaction: %v", types.ErrIO, err)
		}
		edgeLines = append(edgeLines, line)
	}

	itemsPath := filepath.Join(s.dir, ItemsFile)
	edgesPath := filepath.Join(s.dir, EdgesFile)

	if err := s.itemsFile.Close(); err != nil {
		return fmt.Errorf("%w: closing items log before rotation: %v", types.ErrIO, err)
	}
	if err := jsonl.RotateCompacted(itemsPath, itemLines); err != nil {
		return fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	newItemsFile, err := jsonl.OpenAppend(itemsPath)
	if err != nil {
		return fmt.Errorf("%w: reopening items log: %v", types.ErrIO, err)
	}
	s.itemsFile = newItemsFile

	if err := s.edgesFile.Close(); err != nil {
		return fmt.Errorf("%w: closing edges log before rotation: %v", types.ErrIO, err)
	}
	if err := jsonl.RotateCompacted(edgesPath, edgeLines); err != nil {
		return fmt.Errorf("%w: %v", types.ErrIO, err)
	}
	newEdgesFile, err := jsonl.OpenAppend(edgesPath)
	if err != nil {
		return fmt.Errorf("%w: reopening edges log: %v", types.ErrIO, err)
	}
	s.edgesFile = newEdgesFile

	return nil
}
