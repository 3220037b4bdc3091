// Package observer orchestrates the control-protocol codec, session
// client/manager, pane registry, and input-request parser into the
// long-running daemon loop: topology discovery, streaming or polling
// capture, debounced event emission.
package observer

import "github.com/Eren-Nevin/tmux-observer/internal/registry"

// EventType discriminates an Event.
type EventType string

const (
	EventPaneDiscovered EventType = "pane_discovered"
	EventPaneRemoved    EventType = "pane_removed"
	EventPaneUpdate     EventType = "pane_update"
)

// Event is the discriminated union emitted by the observer. Only the payload
// fields for Type are populated; PaneID is set for both pane_removed and
// pane_update.
type Event struct {
	Type EventType `json:"event"`

	// pane_discovered
	Info *registry.PaneInfo `json:"info,omitempty"`

	// pane_removed
	PaneID string `json:"pane_id,omitempty"`

	// pane_update
	Status       registry.Status         `json:"status,omitempty"`
	Lines        []string                `json:"lines,omitempty"`
	InputRequest *registry.InputRequest  `json:"input_request,omitempty"`
	CursorX      int                     `json:"cursor_x,omitempty"`
	CursorY      int                     `json:"cursor_y,omitempty"`
}

// EventFunc receives every emitted Event. Errors/panics inside it are
// caught at the invocation site and logged; they never unwind into the
// daemon's loops.
type EventFunc func(Event)

// Mode reports which acquisition strategy the observer is currently using.
type Mode string

const (
	ModeNone      Mode = "none"
	ModeStreaming Mode = "streaming"
	ModePolling   Mode = "polling"
)
