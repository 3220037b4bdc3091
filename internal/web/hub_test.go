package web

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Eren-Nevin/tmux-observer/internal/controlmode"
	"github.com/Eren-Nevin/tmux-observer/internal/observer"
	"github.com/Eren-Nevin/tmux-observer/internal/registry"
)

func newTestServer(t *testing.T, reg *registry.Registry) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(Config{}, reg, controlmode.NewShim(nil, "tmux", ""))
	hs := httptest.NewServer(nil)
	// Route through the same mux the server built internally by reusing its handler.
	hs.Config.Handler = s.httpServer.Handler
	return s, hs
}

func dialWS(t *testing.T, httpURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHandleWS_SendsInitialState(t *testing.T) {
	reg := registry.New(100)
	reg.Update("%1", registry.PaneState{PaneID: "%1", SessionName: "main", Status: registry.StatusRunning})

	_, hs := newTestServer(t, reg)
	defer hs.Close()

	conn := dialWS(t, hs.URL)

	var msg wsServerEvent
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "initial_state", msg.Event)
	require.Len(t, msg.Panes, 1)
	require.Equal(t, "%1", msg.Panes[0].PaneID)
}

func TestHandleWS_PingPong(t *testing.T) {
	reg := registry.New(100)
	_, hs := newTestServer(t, reg)
	defer hs.Close()

	conn := dialWS(t, hs.URL)

	var initial wsServerEvent
	require.NoError(t, conn.ReadJSON(&initial))

	require.NoError(t, conn.WriteJSON(wsClientMessage{Type: "ping"}))

	var pong wsServerEvent
	require.NoError(t, conn.ReadJSON(&pong))
	require.Equal(t, "pong", pong.Event)
}

func TestHandleWS_GetState(t *testing.T) {
	reg := registry.New(100)
	_, hs := newTestServer(t, reg)
	defer hs.Close()

	conn := dialWS(t, hs.URL)
	var initial wsServerEvent
	require.NoError(t, conn.ReadJSON(&initial))

	require.NoError(t, conn.WriteJSON(wsClientMessage{Type: "get_state"}))

	var state wsServerEvent
	require.NoError(t, conn.ReadJSON(&state))
	require.Equal(t, "state", state.Event)
}

func TestBroadcast_RelaysPaneUpdate(t *testing.T) {
	reg := registry.New(100)
	s, hs := newTestServer(t, reg)
	defer hs.Close()

	conn := dialWS(t, hs.URL)
	var initial wsServerEvent
	require.NoError(t, conn.ReadJSON(&initial))

	s.OnEvent(observer.Event{
		Type:   observer.EventPaneUpdate,
		PaneID: "%2",
		Status: registry.StatusWaitingInput,
		Lines:  []string{"a", "b"},
	})

	done := make(chan wsServerEvent, 1)
	go func() {
		var ev wsServerEvent
		if err := conn.ReadJSON(&ev); err == nil {
			done <- ev
		}
	}()

	select {
	case ev := <-done:
		require.Equal(t, "pane_update", ev.Event)
		require.Equal(t, "%2", ev.PaneID)
		require.Equal(t, registry.StatusWaitingInput, ev.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive broadcast pane_update event")
	}
}

func TestHub_CloseAllClosesConnections(t *testing.T) {
	reg := registry.New(100)
	s, hs := newTestServer(t, reg)
	defer hs.Close()

	conn := dialWS(t, hs.URL)
	var initial wsServerEvent
	require.NoError(t, conn.ReadJSON(&initial))

	s.hub.CloseAll()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestAllowWSOrigin(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Host = "example.com"
	req.Header.Set("Origin", "http://example.com")
	require.True(t, allowWSOrigin(req))

	req2 := httptest.NewRequest("GET", "/ws", nil)
	req2.Host = "example.com"
	req2.Header.Set("Origin", "http://evil.com")
	require.False(t, allowWSOrigin(req2))

	req3 := httptest.NewRequest("GET", "/ws", nil)
	req3.Host = "example.com"
	require.True(t, allowWSOrigin(req3))
}
