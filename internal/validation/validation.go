// Package validation implements the field-level checks the spec's data
// model requires: title/description length and character set, priority
// range, and label shape.
package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/neuraphage/engram/internal/types"
)

const (
	MaxTitleLen       = 500
	MinDescriptionCap = 10000 // floor the spec requires implementations to accept
	MaxLabelLen       = 64
	MinPriority       = 0
	MaxPriority       = 4
)

// Title validates a title: 1..=500 code points, no control characters other
// than spaces.
func Title(title string) error {
	n := len([]rune(title))
	if n < 1 || n > MaxTitleLen {
		return fmt.Errorf("%w: title must be 1..=%d code points, got %d", types.ErrInvalidTitle, MaxTitleLen, n)
	}
	if hasDisallowedControl(title) {
		return fmt.Errorf("%w: title contains control characters", types.ErrInvalidTitle)
	}
	return nil
}

// Description validates an optional description. It is free text — unlike
// title and labels it may contain newlines and other whitespace control
// characters — and implementations must accept at least MinDescriptionCap
// code points, so no upper bound is enforced here.
func Description(desc string) error {
	return nil
}

// Priority validates the 0..=4 priority range.
func Priority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return fmt.Errorf("%w: priority must be %d..=%d, got %d", types.ErrInvalidPriority, MinPriority, MaxPriority, p)
	}
	return nil
}

// Label validates a single tag: 1..=64 code points, no control characters,
// no commas, not whitespace-only.
func Label(tag string) error {
	n := len([]rune(tag))
	if n < 1 || n > MaxLabelLen {
		return fmt.Errorf("%w: label must be 1..=%d code points, got %q", types.ErrInvalidLabel, MaxLabelLen, tag)
	}
	if strings.TrimSpace(tag) == "" {
		return fmt.Errorf("%w: label cannot be whitespace-only", types.ErrInvalidLabel)
	}
	if strings.Contains(tag, ",") {
		return fmt.Errorf("%w: label cannot contain a comma: %q", types.ErrInvalidLabel, tag)
	}
	if hasDisallowedControl(tag) {
		return fmt.Errorf("%w: label contains control characters: %q", types.ErrInvalidLabel, tag)
	}
	return nil
}

// NormalizeLabels trims, validates, and dedupes a label list, preserving
// first-seen order, the way the beads CLI's label normalization helpers do.
func NormalizeLabels(labels []string) ([]string, error) {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, raw := range labels {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		if err := Label(tag); err != nil {
			return nil, err
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out, nil
}

// EdgeKind validates a closed-enumeration edge kind.
func EdgeKind(k types.EdgeKind) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidEdgeKind, k)
	}
	return nil
}

// hasDisallowedControl reports whether s contains a control character other
// than a plain space (spaces are explicitly allowed by the spec; newlines,
// tabs, and other C0/C1 controls are not).
func hasDisallowedControl(s string) bool {
	for _, r := range s {
		if r == ' ' {
			continue
		}
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
