package controlmode

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionManager_DiscoversAndAttachesSession(t *testing.T) {
	requireTmux(t)
	socket := newIsolatedSocket(t)
	name := newTestSession(t, socket)

	m := NewSessionManager(ManagerOptions{MuxPath: "tmux", SocketPath: socket})
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	require.Eventually(t, func() bool {
		c, ok := m.GetClient(name)
		return ok && c.IsRunning()
	}, 3*time.Second, 50*time.Millisecond)
}

func TestSessionManager_DropsClientWhenSessionKilled(t *testing.T) {
	requireTmux(t)
	socket := newIsolatedSocket(t)
	name := newTestSession(t, socket)

	m := NewSessionManager(ManagerOptions{
		MuxPath:        "tmux",
		SocketPath:     socket,
		ReconnectDelay: 50 * time.Millisecond,
		MaxReconnects:  1,
	})
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	require.Eventually(t, func() bool {
		_, ok := m.GetClient(name)
		return ok
	}, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, exec.Command("tmux", "-S", socket, "kill-session", "-t", name).Run())

	require.Eventually(t, func() bool {
		return len(m.SessionNames()) == 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSessionManager_StopIsIdempotent(t *testing.T) {
	m := NewSessionManager(ManagerOptions{MuxPath: "tmux"})
	m.Stop()
	m.Stop()
}
