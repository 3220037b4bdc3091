package controlmode

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// newIsolatedSocket returns a socket path under t.TempDir so tests never
// touch the invoking user's real tmux server.
func newIsolatedSocket(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "tmux-observer-test.sock")
}

func requireTmux(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not available")
	}
}

func newTestSession(t *testing.T, socket string) string {
	t.Helper()
	name := "obs-test-" + uuid.NewString()[:8]
	cmd := exec.Command("tmux", "-S", socket, "new-session", "-d", "-s", name)
	require.NoError(t, cmd.Run())
	t.Cleanup(func() {
		_ = exec.Command("tmux", "-S", socket, "kill-session", "-t", name).Run()
	})
	return name
}

func TestListSessions_NoServerRunningIsEmpty(t *testing.T) {
	requireTmux(t)
	socket := newIsolatedSocket(t)

	sessions, err := ListSessions(context.Background(), "tmux", socket)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestDiscoverAllPanes_FindsCreatedSession(t *testing.T) {
	requireTmux(t)
	socket := newIsolatedSocket(t)
	name := newTestSession(t, socket)

	panes, err := DiscoverAllPanes(context.Background(), "tmux", socket)
	require.NoError(t, err)
	require.NotEmpty(t, panes)

	found := false
	for _, p := range panes {
		if p.SessionName == name {
			found = true
			require.NotEmpty(t, p.PaneID)
		}
	}
	require.True(t, found, "expected to discover session %s", name)
}

func TestMuxAvailable(t *testing.T) {
	require.False(t, MuxAvailable("definitely-not-a-real-binary-xyz"))
}
