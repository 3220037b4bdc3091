package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Eren-Nevin/tmux-observer/internal/logging"
	"github.com/Eren-Nevin/tmux-observer/internal/observer"
	"github.com/Eren-Nevin/tmux-observer/internal/registry"
)

var hubLog = logging.ForComponent(logging.CompWeb)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     allowWSOrigin,
}

// allowWSOrigin is a same-origin default for the absence of any real
// CORS/auth layer, which this surface doesn't implement either.
func allowWSOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return false
	}
	return strings.EqualFold(originURL.Host, r.Host)
}

type wsClientMessage struct {
	Type string `json:"type"`
}

type wsServerEvent struct {
	Event        string                 `json:"event"`
	Panes        []registry.PaneState   `json:"panes,omitempty"`
	Info         *registry.PaneInfo     `json:"info,omitempty"`
	PaneID       string                 `json:"pane_id,omitempty"`
	Status       registry.Status        `json:"status,omitempty"`
	Lines        []string               `json:"lines,omitempty"`
	InputRequest *registry.InputRequest `json:"input_request,omitempty"`
	CursorX      int                    `json:"cursor_x,omitempty"`
	CursorY      int                    `json:"cursor_y,omitempty"`
}

// Hub tracks active websocket subscribers and broadcasts observer events to
// all of them, pruning dead connections as it goes.
type Hub struct {
	registry *registry.Registry

	mu      sync.Mutex
	clients map[string]*wsClient
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes; gorilla conns are not write-safe for concurrent use
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func newHub(reg *registry.Registry) *Hub {
	return &Hub{registry: reg, clients: make(map[string]*wsClient)}
}

// Broadcast relays an observer.Event to every connected subscriber as one
// of pane_discovered/pane_removed/pane_update, pruning dead connections
// encountered along the way. "state" is only sent in reply to get_state.
func (h *Hub) Broadcast(ev observer.Event) {
	msg := toWSEvent(ev)

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.writeJSON(msg); err != nil {
			h.remove(c.id)
		}
	}
}

func toWSEvent(ev observer.Event) wsServerEvent {
	switch ev.Type {
	case observer.EventPaneDiscovered:
		return wsServerEvent{Event: "pane_discovered", Info: ev.Info}
	case observer.EventPaneRemoved:
		return wsServerEvent{Event: "pane_removed", PaneID: ev.PaneID}
	case observer.EventPaneUpdate:
		return wsServerEvent{
			Event:        "pane_update",
			PaneID:       ev.PaneID,
			Status:       ev.Status,
			Lines:        ev.Lines,
			InputRequest: ev.InputRequest,
			CursorX:      ev.CursorX,
			CursorY:      ev.CursorY,
		}
	default:
		return wsServerEvent{Event: string(ev.Type)}
	}
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// CloseAll closes every tracked websocket connection. Called on server
// shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*wsClient)
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
}

// handleWS upgrades to a websocket connection, registers it in the hub,
// sends an initial_state snapshot, then relays broadcast events. Accepts
// client-sent ping/get_state requests.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &wsClient{id: uuid.NewString(), conn: conn}
	s.hub.add(client)
	defer func() {
		s.hub.remove(client.id)
		_ = conn.Close()
	}()

	_ = client.writeJSON(wsServerEvent{Event: "initial_state", Panes: s.registry.GetAll()})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				hubLog.Warn("websocket_closed_unexpectedly", slog.String("client", client.id), slog.String("error", err.Error()))
			}
			return
		}

		var msg wsClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "ping":
			_ = client.writeJSON(wsServerEvent{Event: "pong"})
		case "get_state":
			_ = client.writeJSON(wsServerEvent{Event: "state", Panes: s.registry.GetAll()})
		}
	}
}
