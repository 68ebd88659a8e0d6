// Command engram is the CLI front end for the task-graph engine: a thin
// Cobra tree over internal/session (direct or, when a daemon is running,
// internal/rpc), per spec §4.8.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neuraphage/engram/internal/types"
)

var (
	flagDir  string
	flagJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "engram",
	Short: "A local, file-backed task graph with blocking dependencies",
	Long: `engram tracks work items and the edges between them (blocks, child,
related), derives a ready/blocked view from live blocking edges, and
persists everything as an append-only JSONL log.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "workspace directory (default: discover .engram from cwd, or $ENGRAM_DIR)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output JSON instead of human-readable text")

	rootCmd.AddCommand(
		newInitCmd(),
		newCreateCmd(),
		newGetCmd(),
		newListCmd(),
		newUpdateCmd(),
		newStartCmd(),
		newCloseCmd(),
		newReopenCmd(),
		newBlockCmd(),
		newUnblockCmd(),
		newChildCmd(),
		newReadyCmd(),
		newBlockedCmd(),
		newCompactCmd(),
		newDaemonCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps the engine's error taxonomy onto the exit codes of
// spec §7: 0 success, 1 validation/state errors, 2 environment errors.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if types.IsEnvironment(err) {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}
