package observer

import (
	"context"
	"log/slog"

	"github.com/Eren-Nevin/tmux-observer/internal/inputrequest"
	"github.com/Eren-Nevin/tmux-observer/internal/logging"
)

var streamLog = logging.ForComponent(logging.CompObserver)

// incrementalCaptureLines bounds the re-capture on a debounced pane_update
// in streaming mode.
const incrementalCaptureLines = 300

// handleStreamOutput is the session manager's on_pane_output callback.
// It appends to the registry and, if the append changed anything, schedules
// a debounced pane_update for the pane.
func (o *Observer) handleStreamOutput(sessionName, paneID, data string) {
	if o.registry.AppendOutput(paneID, data) {
		o.debounce.Trigger(paneID)
	}
}

// emitPaneUpdate re-captures a pane, runs the input-request parser, updates
// the registry and emits a pane_update event. Invoked by the debouncer after
// the debounce window elapses; the polling loop emits its own pane_update
// from pollPane instead.
func (o *Observer) emitPaneUpdate(paneID string) {
	state, ok := o.registry.Get(paneID)
	if !ok {
		return
	}

	ctx := context.Background()
	lines, err := o.shim.CapturePane(ctx, state.SessionName, paneID, incrementalCaptureLines)

	var cursorX, cursorY int
	if err != nil {
		streamLog.Warn("capture_failed", slog.String("pane_id", paneID), slog.String("error", err.Error()))
		lines, _ = o.registry.GetOutput(paneID)
		cursorX, cursorY = 0, 0
	} else {
		o.registry.UpdateOutput(paneID, lines, "")
		cursorX, cursorY = queryCursor(ctx, o.shim, state.SessionName, paneID, len(lines))
	}

	o.applyParser(paneID, lines)

	updated, ok := o.registry.Get(paneID)
	if !ok {
		return
	}

	o.emit(Event{
		Type:         EventPaneUpdate,
		PaneID:       paneID,
		Status:       updated.Status,
		Lines:        lines,
		InputRequest: updated.InputRequest,
		CursorX:      cursorX,
		CursorY:      cursorY,
	})
}

// applyParser runs the input-request parser over lines and applies the
// resulting set/clear to the registry.
func (o *Observer) applyParser(paneID string, lines []string) {
	if req, found := inputrequest.Parse(lines); found {
		o.registry.SetInputRequest(paneID, *req)
		return
	}
	if !inputrequest.HasMarker(lines) {
		state, ok := o.registry.Get(paneID)
		if ok && state.InputRequest != nil {
			o.registry.ClearInputRequest(paneID)
		}
	}
}

// emit invokes the configured EventFunc, catching panics so a subscriber
// error never aborts the loop.
func (o *Observer) emit(ev Event) {
	if o.onEvent == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			streamLog.Error("event_callback_panic", slog.Any("recover", r))
		}
	}()
	o.onEvent(ev)
}
