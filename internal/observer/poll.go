package observer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"
)

// fingerprintLines is the tail window hashed to decide whether polled
// output changed.
const fingerprintLines = 50

// pollOnce captures every tracked pane concurrently, computes a fingerprint
// over the trailing window, and emits a pane_update for any pane whose
// content changed. Per-pane errors are isolated: logged, other panes
// unaffected.
func (o *Observer) pollOnce(ctx context.Context) {
	panes := o.registry.GetAll()

	var wg sync.WaitGroup
	for _, p := range panes {
		wg.Add(1)
		go func(paneID, sessionName string) {
			defer wg.Done()
			o.pollPane(ctx, sessionName, paneID)
		}(p.PaneID, p.SessionName)
	}
	wg.Wait()
}

func (o *Observer) pollPane(ctx context.Context, sessionName, paneID string) {
	lines, err := o.shim.CapturePane(ctx, sessionName, paneID, o.cfg.CaptureLines)
	if err != nil {
		discoveryLog.Warn("poll_capture_failed", slog.String("pane_id", paneID), slog.String("error", err.Error()))
		return
	}

	hash := fingerprint(lines)
	if !o.registry.UpdateOutput(paneID, lines, hash) {
		return
	}

	o.applyParser(paneID, lines)

	updated, ok := o.registry.Get(paneID)
	if !ok {
		return
	}

	cursorX, cursorY := queryCursor(ctx, o.shim, sessionName, paneID, len(lines))

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

// fingerprint computes a stable hash over the UTF-8 bytes of the last
// fingerprintLines lines.
func fingerprint(lines []string) string {
	tail := lines
	if len(tail) > fingerprintLines {
		tail = tail[len(tail)-fingerprintLines:]
	}
	h := sha256.Sum256([]byte(strings.Join(tail, "\n")))
	return hex.EncodeToString(h[:])
}
