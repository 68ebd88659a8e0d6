package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neuraphage/engram/internal/daemon"
)

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background daemon that serves RPC requests for this store",
	}
	cmd.AddCommand(newDaemonStartCmd(), newDaemonStatusCmd(), newDaemonStopCmd())
	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := storeDir()
			if err != nil {
				return err
			}
			if daemon.IsRunning(dir) {
				fmt.Fprintf(cmd.OutOrStdout(), "daemon already running for %s\n", dir)
				return nil
			}

			stopCh := make(chan struct{})
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				close(stopCh)
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "daemon listening on %s\n", daemon.SocketPath(dir))
			return daemon.Run(dir, stopCh)
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a daemon is running for this store",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := storeDir()
			if err != nil {
				return err
			}
			running := daemon.IsRunning(dir)
			if flagJSON {
				return printJSON(map[string]interface{}{"running": running, "socket": daemon.SocketPath(dir)})
			}
			if running {
				fmt.Fprintf(cmd.OutOrStdout(), "daemon is running (socket %s)\n", daemon.SocketPath(dir))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "daemon is not running")
			}
			return nil
		},
	}
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon for this store",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := storeDir()
			if err != nil {
				return err
			}
			if err := daemon.StopRunning(dir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "daemon stopped")
			return nil
		},
	}
}
