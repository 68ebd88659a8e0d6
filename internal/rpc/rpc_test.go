package rpc

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraphage/engram/internal/session"
	"github.com/neuraphage/engram/internal/types"
)

func startTestServer(t *testing.T) (*Client, func()) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".engram")
	require.NoError(t, session.Init(dir))
	s, err := session.Open(dir)
	require.NoError(t, err)

	sockPath := filepath.Join(t.TempDir(), "engram.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)

	srv := NewServer(s)
	go srv.Serve(ln)

	client, err := TryConnectWithTimeout(sockPath, 0)
	require.NoError(t, err)
	require.NotNil(t, client)

	cleanup := func() {
		client.Close()
		ln.Close()
		s.Shutdown()
	}
	return client, cleanup
}

func TestClientCreateGetRoundTrip(t *testing.T) {
	c, cleanup := startTestServer(t)
	defer cleanup()

	it, err := c.Create("title", 1, []string{"x"}, "desc")
	require.NoError(t, err)
	assert.Equal(t, "title", it.Title)

	got, err := c.Get(it.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "desc", got.Description)
}

func TestClientAddEdgeAndReady(t *testing.T) {
	c, cleanup := startTestServer(t)
	defer cleanup()

	a, err := c.Create("a", 1, nil, "")
	require.NoError(t, err)
	b, err := c.Create("b", 1, nil, "")
	require.NoError(t, err)

	_, err = c.AddEdge(b.ID, a.ID, types.EdgeBlocks)
	require.NoError(t, err)

	ready, err := c.Ready()
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, it := range ready {
		ids[it.ID] = true
	}
	assert.True(t, ids[a.ID])
	assert.False(t, ids[b.ID])
}

func TestClientSurfacesSessionErrors(t *testing.T) {
	c, cleanup := startTestServer(t)
	defer cleanup()

	_, err := c.Create("", 1, nil, "")
	require.Error(t, err)
}

func TestTryConnectReturnsNilWhenNoDaemon(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "missing.sock")
	client, err := TryConnectWithTimeout(sockPath, 0)
	require.NoError(t, err)
	assert.Nil(t, client)
}
