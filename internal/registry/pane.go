// Package registry implements the thread-safe in-memory store of per-pane
// observation state.
package registry

import "time"

// Status is the lifecycle state of an observed pane.
type Status string

const (
	StatusRunning      Status = "running"
	StatusWaitingInput Status = "waiting_input"
	StatusIdle         Status = "idle"
	StatusExited       Status = "exited"
)

// InputType discriminates the kind of input a pane is waiting for.
type InputType string

const (
	InputText    InputType = "text"
	InputChoice  InputType = "choice"
	InputConfirm InputType = "confirm"
)

// InputRequest is a parsed [INPUT_REQUIRED] block.
type InputRequest struct {
	InputType InputType `json:"input_type"`
	Prompt    string    `json:"prompt,omitempty"`
	Message   string    `json:"message,omitempty"`
	Options   []string  `json:"options,omitempty"`
}

// PaneState is the full observation record for one tracked pane.
//
// Invariants: InputRequest is non-nil iff Status == StatusWaitingInput;
// len(LastLines) <= the registry's configured line cap; PaneID uniquely
// identifies the entry.
type PaneState struct {
	PaneID      string `json:"pane_id"`
	SessionName string `json:"session_name"`
	WindowName  string `json:"window_name"`
	WindowIndex int    `json:"window_index"`
	PaneIndex   int    `json:"pane_index"`
	Title       string `json:"title"`

	Status Status `json:"status"`

	LastLines      []string `json:"last_lines"`
	LastOutputHash string   `json:"last_output_hash,omitempty"`

	InputRequest *InputRequest `json:"input_request,omitempty"`

	LastActivity time.Time `json:"last_activity"`
}

// PaneInfo is the topology subset of PaneState, used for pane_discovered
// events and discovery diffing.
type PaneInfo struct {
	PaneID      string `json:"pane_id"`
	SessionName string `json:"session_name"`
	WindowName  string `json:"window_name"`
	WindowIndex int    `json:"window_index"`
	PaneIndex   int    `json:"pane_index"`
	Title       string `json:"title"`
}

// Info returns the topology subset of a pane's state.
func (p PaneState) Info() PaneInfo {
	return PaneInfo{
		PaneID:      p.PaneID,
		SessionName: p.SessionName,
		WindowName:  p.WindowName,
		WindowIndex: p.WindowIndex,
		PaneIndex:   p.PaneIndex,
		Title:       p.Title,
	}
}

// clone returns a defensive copy, so callers never alias internal registry
// state.
func (p PaneState) clone() PaneState {
	cp := p
	if p.LastLines != nil {
		cp.LastLines = append([]string(nil), p.LastLines...)
	}
	if p.InputRequest != nil {
		req := *p.InputRequest
		if p.InputRequest.Options != nil {
			req.Options = append([]string(nil), p.InputRequest.Options...)
		}
		cp.InputRequest = &req
	}
	return cp
}
