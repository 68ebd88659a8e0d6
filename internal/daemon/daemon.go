// Package daemon resolves the socket/pidfile paths of spec §4.7's daemon
// protocol and decides, for a given store directory, whether a caller
// should talk to a running daemon over RPC or open the store directly.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/neuraphage/engram/internal/debug"
	"github.com/neuraphage/engram/internal/rpc"
	"github.com/neuraphage/engram/internal/session"
)

const (
	socketName = "daemon.sock"
	pidName    = "daemon.pid"
)

// SocketPath returns the Unix socket path a daemon rooted at dir listens
// on. ENGRAM_SOCKET overrides it, for test isolation.
func SocketPath(dir string) string {
	if v := os.Getenv("ENGRAM_SOCKET"); v != "" {
		return v
	}
	return filepath.Join(dir, socketName)
}

// PidFilePath returns the path of the daemon's pidfile under dir.
func PidFilePath(dir string) string {
	return filepath.Join(dir, pidName)
}

// WritePidFile records the running daemon's pid for `daemon status`/`daemon
// stop` to read, best-effort (diagnostic only, never authoritative — the
// directory flock is what actually enforces single-writer).
func WritePidFile(dir string) error {
	return os.WriteFile(PidFilePath(dir), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPidFile returns the pid recorded by a prior WritePidFile, or 0 if
// absent or unparsable.
func ReadPidFile(dir string) int {
	b, err := os.ReadFile(PidFilePath(dir))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(string(b))
	if err != nil {
		return 0
	}
	return pid
}

// RemovePidFile removes the pidfile; called on clean daemon shutdown.
func RemovePidFile(dir string) error {
	err := os.Remove(PidFilePath(dir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// OpenAuto returns a session.Handle for dir, preferring an RPC connection
// to an already-running daemon and falling back to a direct session.Open
// when none answers. This mirrors the probe-then-fall-back pattern a CLI
// front end uses so it never needs to know whether a daemon is present.
func OpenAuto(dir string) (session.Handle, error) {
	sockPath := SocketPath(dir)
	client, err := rpc.TryConnectWithTimeout(sockPath, 200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if client != nil {
		if pingErr := client.Ping(); pingErr == nil {
			debug.Logf("daemon: connected to running daemon at %s", sockPath)
			return client, nil
		}
		client.Close()
		debug.Logf("daemon: stale socket at %s, falling back to direct open", sockPath)
	}
	return session.Open(dir)
}

// IsRunning reports whether a daemon appears to be alive for dir, by
// probing the socket rather than trusting the pidfile (which can be stale
// after a crash).
func IsRunning(dir string) bool {
	client, err := rpc.TryConnectWithTimeout(SocketPath(dir), 200*time.Millisecond)
	if err != nil || client == nil {
		return false
	}
	defer client.Close()
	return client.Ping() == nil
}

// StopRunning asks a running daemon, if any, to shut itself down. It
// returns nil if no daemon was running.
func StopRunning(dir string) error {
	client, err := rpc.TryConnectWithTimeout(SocketPath(dir), 200*time.Millisecond)
	if err != nil {
		return err
	}
	if client == nil {
		return nil
	}
	if err := client.RequestDaemonShutdown(); err != nil {
		return fmt.Errorf("stopping daemon: %w", err)
	}
	return nil
}
