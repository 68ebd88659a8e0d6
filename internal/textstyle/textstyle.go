// Package textstyle provides the terminal styling used by the CLI front
// end, grounded on the teacher's own lipgloss palette.
package textstyle

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/neuraphage/engram/internal/types"
)

var (
	openStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	})
	inProgressStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	})
	blockedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	})
	closedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	})
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	})
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}).Bold(true)
	boldStyle = lipgloss.NewStyle().Bold(true)
)

// Status renders s in the color the teacher's CLI uses for the matching
// concept (open=accent, in_progress=warn, blocked=fail, closed=pass).
func Status(s types.Status) string {
	switch s {
	case types.StatusOpen:
		return openStyle.Render(string(s))
	case types.StatusInProgress:
		return inProgressStyle.Render(string(s))
	case types.StatusBlocked:
		return blockedStyle.Render(string(s))
	case types.StatusClosed:
		return closedStyle.Render(string(s))
	default:
		return string(s)
	}
}

// Muted renders secondary/deemphasized text (ids, timestamps).
func Muted(s string) string { return mutedStyle.Render(s) }

// Bold renders emphasized text (titles in detail views).
func Bold(s string) string { return boldStyle.Render(s) }

// Error renders an error message for terminal output.
func Error(err error) string {
	return errStyle.Render(fmt.Sprintf("error: %v", err))
}

// ID renders an item id, muted, the way a detail view labels its header.
func ID(id string) string { return mutedStyle.Render(id) }
