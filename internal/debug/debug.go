// Package debug provides env-gated diagnostic logging for the engram CLI
// and daemon, in the same spirit as the beads lineage's own debug package:
// a plain stderr writer behind an environment variable, not a structured
// logging framework.
package debug

import (
	"fmt"
	"os"
	"sync"
)

var (
	enabled     = os.Getenv("ENGRAM_DEBUG") != ""
	verboseMode bool
	mu          sync.Mutex
)

// Enabled reports whether debug logging is active.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled || verboseMode
}

// SetVerbose toggles verbose mode regardless of the environment variable.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verboseMode = v
}

// Logf writes a formatted diagnostic line to stderr when debug logging is
// enabled.
func Logf(format string, args ...interface{}) {
	if Enabled() {
		fmt.Fprintf(os.Stderr, "[engram] "+format+"\n", args...)
	}
}
