package controlmode

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Shim issues capture/send-keys/display-message commands either through a
// session's live control-mode client or, when none is available, via a
// one-shot subprocess. Concurrent subprocess calls for the same pane are
// deduplicated with a singleflight.Group.
type Shim struct {
	manager    *SessionManager
	muxPath    string
	socketPath string
	group      singleflight.Group
}

// NewShim constructs a shim bound to a manager (may be nil if streaming is
// disabled) and the multiplexer binary/socket to use for subprocess calls.
func NewShim(manager *SessionManager, muxPath, socketPath string) *Shim {
	if muxPath == "" {
		muxPath = "tmux"
	}
	return &Shim{manager: manager, muxPath: muxPath, socketPath: socketPath}
}

// CapturePane returns the last `lines` rows of a pane's content, including
// escape sequences. Prefers the session's live control-mode client;
// falls back to a one-shot `capture-pane` subprocess, deduplicated across
// concurrent callers for the same pane.
func (s *Shim) CapturePane(ctx context.Context, sessionName, paneID string, lines int) ([]string, error) {
	if s.manager != nil {
		if client, ok := s.manager.GetClient(sessionName); ok && client.IsRunning() {
			out, err := client.CapturePane(paneID, lines)
			if err == nil {
				return out, nil
			}
			// fall through to subprocess on client-side failure
		}
	}

	key := fmt.Sprintf("capture:%s:%d", paneID, lines)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		args := append(baseArgs(s.muxPath, s.socketPath), "capture-pane", "-p", "-e", "-t", paneID, "-S", "-"+strconv.Itoa(lines))
		out, err := runMux(ctx, s.muxPath, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	out := v.(string)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// SendKeys writes text to a pane, optionally followed by Enter. literal
// selects tmux's `-l` literal-keys mode.
func (s *Shim) SendKeys(ctx context.Context, sessionName, paneID, text string, literal, enter bool) error {
	if s.manager != nil {
		if client, ok := s.manager.GetClient(sessionName); ok && client.IsRunning() {
			cmd := buildSendKeysCmd(paneID, text, literal)
			if _, err := client.SendCommand(cmd); err != nil {
				return fmt.Errorf("%w: %v", ErrSendFailed, err)
			}
			if enter {
				if _, err := client.SendCommand(fmt.Sprintf("send-keys -t %s Enter", paneID)); err != nil {
					return fmt.Errorf("%w: %v", ErrSendFailed, err)
				}
			}
			return nil
		}
	}

	args := append(baseArgs(s.muxPath, s.socketPath), splitSendKeysArgs(paneID, text, literal)...)
	if _, err := runMux(ctx, s.muxPath, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if enter {
		enterArgs := append(baseArgs(s.muxPath, s.socketPath), "send-keys", "-t", paneID, "Enter")
		if _, err := runMux(ctx, s.muxPath, enterArgs...); err != nil {
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
	}
	return nil
}

func buildSendKeysCmd(paneID, text string, literal bool) string {
	if literal {
		return fmt.Sprintf("send-keys -t %s -l %s", paneID, Escape(text))
	}
	return fmt.Sprintf("send-keys -t %s %s", paneID, Escape(text))
}

func splitSendKeysArgs(paneID, text string, literal bool) []string {
	args := []string{"send-keys", "-t", paneID}
	if literal {
		args = append(args, "-l")
	}
	args = append(args, text)
	return args
}

// CursorPosition queries the pane's cursor via display-message, returning
// (cursor_x, cursor_y_within_visible, pane_height). Returns all zero on
// failure.
func (s *Shim) CursorPosition(ctx context.Context, sessionName, paneID string) (x, y, height int) {
	format := "#{cursor_x}|#{cursor_y}|#{pane_height}"
	var out string
	var err error

	if s.manager != nil {
		if client, ok := s.manager.GetClient(sessionName); ok && client.IsRunning() {
			resp, cerr := client.SendCommand(fmt.Sprintf("display-message -t %s -p \"%s\"", paneID, format))
			if cerr == nil {
				out = resp.Output
			} else {
				err = cerr
			}
		}
	}

	if out == "" {
		args := append(baseArgs(s.muxPath, s.socketPath), "display-message", "-t", paneID, "-p", format)
		out, err = runMux(ctx, s.muxPath, args...)
	}
	if err != nil || out == "" {
		return 0, 0, 0
	}

	parts := strings.SplitN(strings.TrimSpace(out), "|", 3)
	if len(parts) != 3 {
		return 0, 0, 0
	}
	x, _ = strconv.Atoi(parts[0])
	y, _ = strconv.Atoi(parts[1])
	height, _ = strconv.Atoi(parts[2])
	return x, y, height
}

// AbsoluteCursorLine converts a visible-cursor-y into an absolute line
// index within a captured buffer of the given line count.
func AbsoluteCursorLine(lineCount, paneHeight, cursorYVisible int) int {
	base := lineCount - paneHeight
	if base < 0 {
		base = 0
	}
	return base + cursorYVisible
}

// MuxAvailable reports whether the multiplexer binary can be found.
func MuxAvailable(muxPath string) bool {
	if muxPath == "" {
		muxPath = "tmux"
	}
	_, err := exec.LookPath(muxPath)
	return err == nil
}
