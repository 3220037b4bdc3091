package controlmode

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
)

// PaneTopology is one row of `list-panes` output.
type PaneTopology struct {
	PaneID       string
	SessionName  string
	WindowName   string
	WindowIndex  int
	PaneIndex    int
	Title        string
	Active       bool
}

// WindowTopology is one row of `list-windows` output.
type WindowTopology struct {
	Index int
	Name  string
}

func baseArgs(muxPath, socketPath string) []string {
	args := []string{}
	if socketPath != "" {
		args = append(args, "-S", socketPath)
	}
	return args
}

// runMux runs a one-shot tmux command and returns stdout, normalizing
// "no server running"/"no sessions" stderr on nonzero exit to empty output.
func runMux(ctx context.Context, muxPath string, args ...string) (string, error) {
	if muxPath == "" {
		muxPath = "tmux"
	}
	cmd := exec.CommandContext(ctx, muxPath, args...)
	out, err := cmd.Output()
	if err != nil {
		var stderr string
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = string(ee.Stderr)
		}
		if strings.Contains(stderr, "no server running") || strings.Contains(stderr, "no sessions") {
			return "", nil
		}
		return "", err
	}
	return string(out), nil
}

// ListSessions issues `tmux [-S socket] list-sessions -F "#{session_name}"`.
func ListSessions(ctx context.Context, muxPath, socketPath string) ([]string, error) {
	args := append(baseArgs(muxPath, socketPath), "list-sessions", "-F", "#{session_name}")
	out, err := runMux(ctx, muxPath, args...)
	if err != nil {
		return nil, err
	}
	return splitNonEmpty(out), nil
}

// ListWindows issues `tmux [-S socket] list-windows -t <session> -F "#{window_index}|#{window_name}"`.
func ListWindows(ctx context.Context, muxPath, socketPath, session string) ([]WindowTopology, error) {
	args := append(baseArgs(muxPath, socketPath), "list-windows", "-t", session, "-F", "#{window_index}|#{window_name}")
	out, err := runMux(ctx, muxPath, args...)
	if err != nil {
		return nil, err
	}
	var windows []WindowTopology
	for _, line := range splitNonEmpty(out) {
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			continue
		}
		idx, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		windows = append(windows, WindowTopology{Index: idx, Name: parts[1]})
	}
	return windows, nil
}

// ListPanes issues `tmux [-S socket] list-panes -t <session>:<window> -F
// "#{pane_id}|#{session_name}|#{window_name}|#{window_index}|#{pane_index}|#{pane_title}|#{pane_active}"`.
func ListPanes(ctx context.Context, muxPath, socketPath, session string, window int) ([]PaneTopology, error) {
	target := session + ":" + strconv.Itoa(window)
	args := append(baseArgs(muxPath, socketPath), "list-panes", "-t", target, "-F",
		"#{pane_id}|#{session_name}|#{window_name}|#{window_index}|#{pane_index}|#{pane_title}|#{pane_active}")
	out, err := runMux(ctx, muxPath, args...)
	if err != nil {
		return nil, err
	}
	var panes []PaneTopology
	for _, line := range splitNonEmpty(out) {
		parts := strings.SplitN(line, "|", 7)
		if len(parts) != 7 {
			continue
		}
		winIdx, _ := strconv.Atoi(parts[3])
		paneIdx, _ := strconv.Atoi(parts[4])
		panes = append(panes, PaneTopology{
			PaneID:      parts[0],
			SessionName: parts[1],
			WindowName:  parts[2],
			WindowIndex: winIdx,
			PaneIndex:   paneIdx,
			Title:       parts[5],
			Active:      parts[6] == "1",
		})
	}
	return panes, nil
}

// DiscoverAllPanes enumerates every pane across every session and window.
func DiscoverAllPanes(ctx context.Context, muxPath, socketPath string) ([]PaneTopology, error) {
	sessions, err := ListSessions(ctx, muxPath, socketPath)
	if err != nil {
		return nil, err
	}
	var all []PaneTopology
	for _, session := range sessions {
		windows, err := ListWindows(ctx, muxPath, socketPath, session)
		if err != nil {
			continue
		}
		for _, w := range windows {
			panes, err := ListPanes(ctx, muxPath, socketPath, session, w.Index)
			if err != nil {
				continue
			}
			all = append(all, panes...)
		}
	}
	return all, nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
