// Package compact implements the maintenance operations of spec §4.6:
// trimming or dropping descriptions of old closed items, dropping
// tombstoned edges and their predecessors, and atomically rotating the
// logs to the resulting snapshot. Unlike the beads lineage's AI-assisted
// tiered compactor (internal/compact/compactor.go, internal/compact/haiku.go
// in the teacher repo), this is pure truncation — the spec gives no role to
// an LLM summarizer, so none is wired in here (see DESIGN.md).
package compact

import (
	"fmt"
	"time"

	"github.com/neuraphage/engram/internal/index"
	"github.com/neuraphage/engram/internal/store"
	"github.com/neuraphage/engram/internal/types"
)

// Result reports what a compaction pass changed.
type Result struct {
	ItemsRewritten int
	ItemCount      int
	EdgeCount      int
}

// Run compacts st/idx per cfg, rotating both logs atomically. now is passed
// in explicitly (rather than time.Now()) so callers control the compaction
// clock the same way the session controls every other timestamp.
func Run(st *store.Store, idx *index.Index, cfg types.CompactConfig, now time.Time) (Result, error) {
	var res Result

	items := idx.AllItems()
	threshold := time.Duration(cfg.OlderThanDays) * 24 * time.Hour

	rewritten := make([]*types.Item, 0, len(items))
	for _, it := range items {
		next := it
		if it.Status == types.StatusClosed && it.ClosedAt != nil && now.Sub(*it.ClosedAt) >= threshold {
			trimmed := trimDescription(it.Description, cfg)
			if trimmed != it.Description {
				cp := it.Clone()
				cp.Description = trimmed
				next = cp
				res.ItemsRewritten++
			}
		}
		rewritten = append(rewritten, next)
	}

	liveEdges := idx.AllLiveEdges()
	res.EdgeCount = len(liveEdges)
	res.ItemCount = len(rewritten)

	if err := st.RotateCompacted(rewritten, liveEdges); err != nil {
		return res, fmt.Errorf("rotating compacted logs: %w", err)
	}

	for _, it := range rewritten {
		idx.Put(it)
	}

	return res, nil
}

// trimDescription applies cfg's DropDescription/MaxDescriptionLen knobs to
// desc. DropDescription takes precedence over a length cap.
func trimDescription(desc string, cfg types.CompactConfig) string {
	if cfg.DropDescription {
		return ""
	}
	if cfg.MaxDescriptionLen > 0 {
		runes := []rune(desc)
		if len(runes) > cfg.MaxDescriptionLen {
			return string(runes[:cfg.MaxDescriptionLen])
		}
	}
	return desc
}
