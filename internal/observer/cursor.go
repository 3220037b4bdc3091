package observer

import (
	"context"

	"github.com/Eren-Nevin/tmux-observer/internal/controlmode"
)

// queryCursor issues a display-message cursor query and converts the
// visible-row cursor into an absolute line index within a buffer holding
// lineCount lines. Returns (0, 0) on failure.
func queryCursor(ctx context.Context, shim *controlmode.Shim, sessionName, paneID string, lineCount int) (x, y int) {
	cx, cyVisible, height := shim.CursorPosition(ctx, sessionName, paneID)
	if height == 0 && cx == 0 && cyVisible == 0 {
		return 0, 0
	}
	return cx, controlmode.AbsoluteCursorLine(lineCount, height, cyVisible)
}
