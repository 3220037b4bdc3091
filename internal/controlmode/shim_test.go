package controlmode

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShim_SendKeysAndCapturePane(t *testing.T) {
	requireTmux(t)
	socket := newIsolatedSocket(t)
	name := newTestSession(t, socket)

	shim := NewShim(nil, "tmux", socket)

	err := shim.SendKeys(context.Background(), name, name+":0.0", "echo hello-from-shim", true, true)
	require.NoError(t, err)

	var lines []string
	require.Eventually(t, func() bool {
		var err error
		lines, err = shim.CapturePane(context.Background(), name, name+":0.0", 50)
		if err != nil {
			return false
		}
		for _, l := range lines {
			if l == "hello-from-shim" {
				return true
			}
		}
		return false
	}, 3*time.Second, 100*time.Millisecond)
}

func TestShim_CursorPosition(t *testing.T) {
	requireTmux(t)
	socket := newIsolatedSocket(t)
	name := newTestSession(t, socket)

	shim := NewShim(nil, "tmux", socket)
	x, y, height := shim.CursorPosition(context.Background(), name, name+":0.0")
	require.GreaterOrEqual(t, x, 0)
	require.GreaterOrEqual(t, y, 0)
	require.Greater(t, height, 0)
}

func TestAbsoluteCursorLine(t *testing.T) {
	require.Equal(t, 45, AbsoluteCursorLine(50, 20, 15))
	require.Equal(t, 5, AbsoluteCursorLine(10, 20, 5))
}
