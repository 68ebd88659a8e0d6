// Package graph enforces the structural invariants the spec assigns to the
// "graph engine": the status state machine, cycle-freedom of the Blocks
// subgraph, edge-kind validation, and self-edge rejection. Edge idempotence
// and endpoint existence are checked by the session, not here. The package
// is stateless with respect to storage — callers (the session) pass it a
// reachability function to consult and are responsible for committing the
// log append and index update the engine's decision authorizes.
package graph

import (
	"fmt"

	"github.com/neuraphage/engram/internal/types"
)

// transitions enumerates the allowed status state machine from §4.3.
var transitions = map[types.Status]map[types.Status]bool{
	types.StatusOpen: {
		types.StatusInProgress: true,
		types.StatusBlocked:    true,
		types.StatusClosed:     true,
	},
	types.StatusInProgress: {
		types.StatusOpen:    true,
		types.StatusBlocked: true,
		types.StatusClosed:  true,
	},
	types.StatusBlocked: {
		types.StatusOpen:       true,
		types.StatusInProgress: true,
		types.StatusClosed:     true,
	},
	types.StatusClosed: {
		types.StatusOpen: true,
	},
}

// ValidateTransition reports whether moving from -> to is allowed. A no-op
// transition (from == to) is never offered by this table and is rejected;
// callers that want idempotent no-ops should special-case it before calling.
func ValidateTransition(from, to types.Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidStatus, to)
	}
	if allowed, ok := transitions[from]; ok && allowed[to] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, from, to)
}

// Reachable answers whether `to` is reachable from `start` over live Blocks
// edges; implementations are typically backed by index.Index.ReachableBlocks.
type Reachable func(start, to string) bool

// CheckCycle rejects a new Blocks edge (from, to) that would create a cycle:
// per §4.3, a cycle exists iff `from` is reachable from `to` already.
func CheckCycle(reachable Reachable, from, to string) error {
	if reachable(to, from) {
		return fmt.Errorf("%w: adding blocks edge %s -> %s", types.ErrWouldCreateCycle, from, to)
	}
	return nil
}

// ValidateEdgeEndpoints rejects self-edges for Blocks and Child (and, per
// the implementation decision recorded in DESIGN.md, Related as well — the
// spec leaves Related's self-edge behavior to the implementer but requires
// it be applied consistently).
func ValidateEdgeEndpoints(from, to string, kind types.EdgeKind) error {
	if err := validateKind(kind); err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("%w: %s edge from %s to itself", types.ErrSelfEdge, kind, from)
	}
	return nil
}

func validateKind(kind types.EdgeKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidEdgeKind, kind)
	}
	return nil
}
