package daemon

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraphage/engram/internal/session"
)

func TestOpenAutoFallsBackWithoutDaemon(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".engram")
	require.NoError(t, session.Init(dir))

	t.Setenv("ENGRAM_SOCKET", filepath.Join(t.TempDir(), "missing.sock"))

	h, err := OpenAuto(dir)
	require.NoError(t, err)
	require.NotNil(t, h)
	defer h.Shutdown()

	assert.False(t, IsRunning(dir))
}

func TestRunServesAndStopsOnShutdownRPC(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".engram")
	require.NoError(t, session.Init(dir))
	t.Setenv("ENGRAM_SOCKET", filepath.Join(t.TempDir(), "daemon.sock"))

	stopCh := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- Run(dir, stopCh) }()

	deadline := time.Now().Add(2 * time.Second)
	for !IsRunning(dir) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, IsRunning(dir))

	require.NoError(t, StopRunning(dir))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after StopRunning")
	}
}
