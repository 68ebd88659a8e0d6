// Package index implements the queryable snapshot derived from the log: a
// point-lookup table of items, a live-edge adjacency structure, and a
// per-item open-blocker-count cache that makes readiness transitions O(1)
// on status change while remaining recomputable from scratch at any time.
package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/neuraphage/engram/internal/types"
)

// Index is the in-memory derived state. Each method takes the index's own
// lock, so single calls are safe for concurrent use; check-then-write
// sequences spanning several calls are serialized by the session layer above
// it under its own lock.
type Index struct {
	mu sync.RWMutex

	items map[string]*types.Item

	// edgeMeta holds live edges keyed by (from, to, kind); a key's absence
	// means no live edge (never created, or tombstoned).
	edgeMeta map[types.EdgeKey]*types.Edge

	// adjacency for fast neighbour enumeration, keyed by kind.
	outgoing map[types.EdgeKind]map[string]map[string]bool // from -> set(to)
	incoming map[types.EdgeKind]map[string]map[string]bool // to -> set(from)

	// openBlockerCount[x] = number of live incoming Blocks edges from an
	// item whose status != Closed. x is ready iff this count is 0 and x
	// itself is not Closed.
	openBlockerCount map[string]int
}

// New returns an empty index.
func New() *Index {
	idx := &Index{
		items:            make(map[string]*types.Item),
		edgeMeta:         make(map[types.EdgeKey]*types.Edge),
		outgoing:         make(map[types.EdgeKind]map[string]map[string]bool),
		incoming:         make(map[types.EdgeKind]map[string]map[string]bool),
		openBlockerCount: make(map[string]int),
	}
	for _, k := range []types.EdgeKind{types.EdgeBlocks, types.EdgeChild, types.EdgeRelated} {
		idx.outgoing[k] = make(map[string]map[string]bool)
		idx.incoming[k] = make(map[string]map[string]bool)
	}
	return idx
}

// ApplyItem implements store.ReplaySink: last-write-wins per id.
func (idx *Index) ApplyItem(item *types.Item) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.applyItemLocked(item)
}

func (idx *Index) applyItemLocked(item *types.Item) {
	cp := item.Clone()
	prev, existed := idx.items[cp.ID]
	idx.items[cp.ID] = cp
	if !existed {
		return
	}
	// Status may have changed; recompute blocker-count contributions this
	// item makes to everything it blocks.
	if prev.Status != cp.Status {
		idx.onBlockerStatusChangedLocked(cp.ID, prev.Status, cp.Status)
	}
}

// ApplyEdge implements store.ReplaySink: a later record with Deleted=true
// retires an earlier creation; re-creation after a tombstone revives the
// edge as live again.
func (idx *Index) ApplyEdge(edge *types.Edge) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.applyEdgeLocked(edge)
}

func (idx *Index) applyEdgeLocked(edge *types.Edge) {
	key := edge.Key()
	_, wasLive := idx.edgeMeta[key]

	if edge.Deleted {
		if wasLive {
			idx.removeAdjacencyLocked(edge.Kind, edge.From, edge.To)
			delete(idx.edgeMeta, key)
			if edge.Kind == types.EdgeBlocks {
				idx.adjustBlockerCountLocked(edge.From, edge.To, -1)
			}
		}
		return
	}

	cp := *edge
	idx.edgeMeta[key] = &cp
	if !wasLive {
		idx.addAdjacencyLocked(edge.Kind, edge.From, edge.To)
		if edge.Kind == types.EdgeBlocks {
			idx.adjustBlockerCountLocked(edge.From, edge.To, +1)
		}
	}
}

func (idx *Index) addAdjacencyLocked(kind types.EdgeKind, from, to string) {
	if idx.outgoing[kind][from] == nil {
		idx.outgoing[kind][from] = make(map[string]bool)
	}
	idx.outgoing[kind][from][to] = true
	if idx.incoming[kind][to] == nil {
		idx.incoming[kind][to] = make(map[string]bool)
	}
	idx.incoming[kind][to][from] = true
}

func (idx *Index) removeAdjacencyLocked(kind types.EdgeKind, from, to string) {
	if m := idx.outgoing[kind][from]; m != nil {
		delete(m, to)
	}
	if m := idx.incoming[kind][to]; m != nil {
		delete(m, from)
	}
}

// adjustBlockerCountLocked updates blocked's open-blocker count when the
// live edge (blocked, blocker, Blocks) — blocked is blocked by blocker, per
// §6's (a, b): a is blocked by b convention — is added (delta=+1) or removed
// (delta=-1). Only blockers that are not Closed contribute.
func (idx *Index) adjustBlockerCountLocked(blocked, blocker string, delta int) {
	b, ok := idx.items[blocker]
	if !ok || b.Status == types.StatusClosed {
		return
	}
	idx.openBlockerCount[blocked] += delta
	if idx.openBlockerCount[blocked] < 0 {
		idx.openBlockerCount[blocked] = 0
	}
}

// onBlockerStatusChangedLocked updates the open-blocker count of every item
// that blockerID directly blocks, when blockerID transitions to or from
// Closed.
func (idx *Index) onBlockerStatusChangedLocked(blockerID string, from, to types.Status) {
	wasClosed := from == types.StatusClosed
	isClosed := to == types.StatusClosed
	if wasClosed == isClosed {
		return
	}
	for blocked := range idx.incoming[types.EdgeBlocks][blockerID] {
		if isClosed {
			idx.openBlockerCount[blocked]--
			if idx.openBlockerCount[blocked] < 0 {
				idx.openBlockerCount[blocked] = 0
			}
		} else {
			idx.openBlockerCount[blocked]++
		}
	}
}

// Get returns a copy of the item with id, or nil if absent.
func (idx *Index) Get(id string) *types.Item {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.items[id].Clone()
}

// Exists reports whether an item with id is present.
func (idx *Index) Exists(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.items[id]
	return ok
}

// Put installs a new or updated item directly (used by the graph engine
// after it has validated a mutation, mirroring an append to the log).
func (idx *Index) Put(item *types.Item) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.applyItemLocked(item)
}

// PutEdge installs an edge record directly, mirroring an append to the log.
func (idx *Index) PutEdge(edge *types.Edge) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.applyEdgeLocked(edge)
}

// LiveEdge returns the live edge metadata for (from, to, kind), or nil.
func (idx *Index) LiveEdge(from, to string, kind types.EdgeKind) *types.Edge {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.edgeMeta[types.EdgeKey{From: from, To: to, Kind: kind}]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

// ReachableBlocks reports whether to is reachable from start by following
// live Blocks edges forward along their literal From -> To direction
// (start -> ... -> to), independent of which endpoint is the blocked item
// and which is the blocker. Used for cycle checking: before adding the raw
// edge (u, v), the caller asks ReachableBlocks(v, u) — a cycle exists iff v
// can already reach u.
func (idx *Index) ReachableBlocks(start, to string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if start == to {
		return true
	}
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range idx.outgoing[types.EdgeBlocks][cur] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// Neighbours returns the live neighbours of id for the given kind and
// direction, sorted for deterministic output.
func (idx *Index) Neighbours(id string, kind types.EdgeKind, outgoing bool) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var set map[string]bool
	if outgoing {
		set = idx.outgoing[kind][id]
	} else {
		set = idx.incoming[kind][id]
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Children returns ids c such that (c, id, Child) is live (c is a child of id).
func (idx *Index) Children(id string) []string { return idx.Neighbours(id, types.EdgeChild, false) }

// Parents returns ids p such that (id, p, Child) is live (id is a child of p).
func (idx *Index) Parents(id string) []string { return idx.Neighbours(id, types.EdgeChild, true) }

// Blockers returns ids b such that (id, b, Blocks) is live (id is blocked by b).
func (idx *Index) Blockers(id string) []string { return idx.Neighbours(id, types.EdgeBlocks, true) }

// BlockedBy returns ids x such that (x, id, Blocks) is live (id blocks x).
func (idx *Index) BlockedBy(id string) []string { return idx.Neighbours(id, types.EdgeBlocks, false) }

// Related returns ids related to id via a live Related edge, either direction.
func (idx *Index) Related(id string) []string {
	idx.mu.RLock()
	out, seen := []string{}, map[string]bool{}
	for n := range idx.outgoing[types.EdgeRelated][id] {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for n := range idx.incoming[types.EdgeRelated][id] {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	idx.mu.RUnlock()
	sort.Strings(out)
	return out
}

func sortItems(items []*types.Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

// List returns items matching filter, always sorted ascending by priority
// then created_at, with Offset and Limit applied after sorting.
func (idx *Index) List(filter types.ListFilter) []*types.Item {
	idx.mu.RLock()
	all := make([]*types.Item, 0, len(idx.items))
	for _, it := range idx.items {
		all = append(all, it.Clone())
	}
	idx.mu.RUnlock()

	statusSet := make(map[types.Status]bool, len(filter.Status))
	for _, s := range filter.Status {
		statusSet[s] = true
	}
	titleQuery := strings.ToLower(filter.TitleContains)

	out := make([]*types.Item, 0, len(all))
	for _, it := range all {
		if len(statusSet) > 0 && !statusSet[it.Status] {
			continue
		}
		if filter.MinPriority != nil && it.Priority < *filter.MinPriority {
			continue
		}
		if filter.MaxPriority != nil && it.Priority > *filter.MaxPriority {
			continue
		}
		if filter.Label != "" && !containsLabel(it.Labels, filter.Label) {
			continue
		}
		if titleQuery != "" && !strings.Contains(strings.ToLower(it.Title), titleQuery) {
			continue
		}
		out = append(out, it)
	}

	sortItems(out)

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*types.Item{}
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}

func containsLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

// Ready returns all non-Closed items whose open-blocker count is zero,
// sorted ascending by priority then created_at.
func (idx *Index) Ready() []*types.Item {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*types.Item, 0)
	for id, it := range idx.items {
		if it.Status == types.StatusClosed {
			continue
		}
		if idx.openBlockerCount[id] == 0 {
			out = append(out, it.Clone())
		}
	}
	sortItems(out)
	return out
}

// Blocked returns all non-Closed items whose open-blocker count is nonzero,
// sorted ascending by priority then created_at.
func (idx *Index) Blocked() []*types.Item {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*types.Item, 0)
	for id, it := range idx.items {
		if it.Status == types.StatusClosed {
			continue
		}
		if idx.openBlockerCount[id] > 0 {
			out = append(out, it.Clone())
		}
	}
	sortItems(out)
	return out
}

// AllItems returns a copy of every item, in no particular order.
func (idx *Index) AllItems() []*types.Item {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*types.Item, 0, len(idx.items))
	for _, it := range idx.items {
		out = append(out, it.Clone())
	}
	return out
}

// AllLiveEdges returns a copy of every currently-live edge, in no particular
// order. Compaction uses this to produce a snapshot that omits tombstoned
// edges and their now-irrelevant predecessors entirely.
func (idx *Index) AllLiveEdges() []*types.Edge {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*types.Edge, 0, len(idx.edgeMeta))
	for _, e := range idx.edgeMeta {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// RecomputeBlockerCounts rebuilds openBlockerCount from scratch by scanning
// live Blocks edges and current item statuses. Used by tests (and available
// to operators) to validate the incrementally-maintained cache never
// drifts from a full recomputation, per the spec's explicit testability
// requirement.
func (idx *Index) RecomputeBlockerCounts() map[string]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.recomputeBlockerCountsLocked()
}

func (idx *Index) recomputeBlockerCountsLocked() map[string]int {
	fresh := make(map[string]int)
	for blocked, blockers := range idx.outgoing[types.EdgeBlocks] {
		count := 0
		for blocker := range blockers {
			if b, ok := idx.items[blocker]; ok && b.Status != types.StatusClosed {
				count++
			}
		}
		if count > 0 {
			fresh[blocked] = count
		}
	}
	return fresh
}

// CacheConsistent reports whether the incrementally maintained
// openBlockerCount cache agrees with a full recomputation.
func (idx *Index) CacheConsistent() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	fresh := idx.recomputeBlockerCountsLocked()
	if len(fresh) != len(nonZero(idx.openBlockerCount)) {
		return false
	}
	for id, count := range fresh {
		if idx.openBlockerCount[id] != count {
			return false
		}
	}
	return true
}

func nonZero(m map[string]int) map[string]int {
	out := make(map[string]int)
	for k, v := range m {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}
