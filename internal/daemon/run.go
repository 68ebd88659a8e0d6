package daemon

import (
	"fmt"
	"net"
	"os"

	"github.com/neuraphage/engram/internal/debug"
	"github.com/neuraphage/engram/internal/rpc"
	"github.com/neuraphage/engram/internal/session"
)

// Run opens dir directly (never via OpenAuto — a daemon is always the
// direct owner of a store) and serves RPC requests on its socket until
// shutdown is requested or the process receives a termination signal via
// stopCh. It removes the socket and pidfile on the way out.
func Run(dir string, stopCh <-chan struct{}) error {
	sess, err := session.Open(dir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer sess.Shutdown()

	sockPath := SocketPath(dir)
	_ = os.Remove(sockPath)
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", sockPath, err)
	}
	defer os.Remove(sockPath)

	if err := WritePidFile(dir); err != nil {
		debug.Logf("daemon: failed to write pidfile: %v", err)
	}
	defer RemovePidFile(dir)

	srv := rpc.NewServer(sess)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case <-stopCh:
		srv.Stop()
		<-serveErr
		return nil
	case err := <-serveErr:
		return err
	}
}
