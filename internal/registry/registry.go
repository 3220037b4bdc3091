package registry

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Eren-Nevin/tmux-observer/internal/logging"
)

var registryLog = logging.ForComponent(logging.CompRegistry)

// DefaultLineCap is the default tail-trim size for PaneState.LastLines.
const DefaultLineCap = 500

// Registry is the thread-safe mapping pane_id -> PaneState. All operations
// acquire a single internal mutex and return defensive copies or snapshot
// lists rather than internal references.
type Registry struct {
	mu      sync.Mutex
	panes   map[string]*PaneState
	lineCap int
}

// New constructs an empty registry. lineCap <= 0 uses DefaultLineCap.
func New(lineCap int) *Registry {
	if lineCap <= 0 {
		lineCap = DefaultLineCap
	}
	return &Registry{
		panes:   make(map[string]*PaneState),
		lineCap: lineCap,
	}
}

// GetAll returns a snapshot copy of every tracked pane.
func (r *Registry) GetAll() []PaneState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PaneState, 0, len(r.panes))
	for _, p := range r.panes {
		out = append(out, p.clone())
	}
	return out
}

// Get returns a defensive copy of one pane's state, if tracked.
func (r *Registry) Get(paneID string) (PaneState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[paneID]
	if !ok {
		return PaneState{}, false
	}
	return p.clone(), true
}

// GetPaneIDs returns a snapshot set of all tracked pane IDs.
func (r *Registry) GetPaneIDs() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{}, len(r.panes))
	for id := range r.panes {
		out[id] = struct{}{}
	}
	return out
}

// Count returns the number of tracked panes.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.panes)
}

// Update upserts a pane's full state, enforcing the line cap and input-
// request/status invariant.
func (r *Registry) Update(paneID string, state PaneState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := state.clone()
	cp.PaneID = paneID
	r.enforceInvariants(&cp)
	cp.LastActivity = time.Now()
	r.panes[paneID] = &cp
}

// UpdateOutput replaces a pane's captured lines and hash. Returns false
// (no-op) if the pane is unknown, or if hash matches the stored hash and is
// non-empty. The empty-string hash always counts as changed, since
// streaming mode never computes one.
func (r *Registry) UpdateOutput(paneID string, lines []string, hash string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.panes[paneID]
	if !ok {
		return false
	}
	if hash != "" && hash == p.LastOutputHash {
		return false
	}

	p.LastLines = trimTail(lines, r.lineCap)
	p.LastOutputHash = hash
	p.LastActivity = time.Now()
	return true
}

// AppendOutput splits data on '\n', appends the first chunk onto the final
// existing line, appends remaining chunks as new lines, and trims to the
// line cap from the tail. Returns true (append_output is unconditional
// after a known-pane check).
func (r *Registry) AppendOutput(paneID, data string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.panes[paneID]
	if !ok {
		return false
	}

	chunks := strings.Split(data, "\n")
	if len(p.LastLines) == 0 {
		p.LastLines = append(p.LastLines, "")
	}
	last := len(p.LastLines) - 1
	p.LastLines[last] += chunks[0]
	if len(chunks) > 1 {
		p.LastLines = append(p.LastLines, chunks[1:]...)
	}

	p.LastLines = trimTail(p.LastLines, r.lineCap)
	p.LastOutputHash = ""
	p.LastActivity = time.Now()
	return true
}

// GetOutput returns a defensive copy of a pane's captured lines.
func (r *Registry) GetOutput(paneID string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[paneID]
	if !ok {
		return nil, false
	}
	return append([]string(nil), p.LastLines...), true
}

// UpdateStatus sets a pane's status. Change-detecting: returns false if the
// status is unchanged.
func (r *Registry) UpdateStatus(paneID string, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[paneID]
	if !ok {
		return false
	}
	if p.Status == status {
		return false
	}
	p.Status = status
	r.enforceInvariants(p)
	p.LastActivity = time.Now()
	return true
}

// SetInputRequest sets a pane's pending input request and moves it to
// waiting_input.
func (r *Registry) SetInputRequest(paneID string, req InputRequest) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[paneID]
	if !ok {
		return false
	}
	cp := req
	if req.Options != nil {
		cp.Options = append([]string(nil), req.Options...)
	}
	p.InputRequest = &cp
	p.Status = StatusWaitingInput
	p.LastActivity = time.Now()
	return true
}

// ClearInputRequest drops a pane's pending input request and returns it to
// running.
func (r *Registry) ClearInputRequest(paneID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[paneID]
	if !ok {
		return false
	}
	if p.InputRequest == nil && p.Status == StatusRunning {
		return false
	}
	p.InputRequest = nil
	p.Status = StatusRunning
	p.LastActivity = time.Now()
	return true
}

// Remove drops a pane entirely.
func (r *Registry) Remove(paneID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.panes, paneID)
}

// Clear removes every tracked pane.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panes = make(map[string]*PaneState)
}

// enforceInvariants keeps InputRequest non-nil iff status is waiting_input,
// and trims LastLines to the configured cap. Called with the lock held.
func (r *Registry) enforceInvariants(p *PaneState) {
	if p.Status != StatusWaitingInput {
		p.InputRequest = nil
	} else if p.InputRequest == nil {
		registryLog.Warn("waiting_input_without_request", slog.String("pane_id", p.PaneID))
	}
	p.LastLines = trimTail(p.LastLines, r.lineCap)
}

func trimTail(lines []string, cap int) []string {
	if cap <= 0 || len(lines) <= cap {
		return lines
	}
	return append([]string(nil), lines[len(lines)-cap:]...)
}
