package observer

import (
	"context"
	"log/slog"

	"github.com/Eren-Nevin/tmux-observer/internal/controlmode"
	"github.com/Eren-Nevin/tmux-observer/internal/logging"
	"github.com/Eren-Nevin/tmux-observer/internal/registry"
)

var discoveryLog = logging.ForComponent(logging.CompObserver)

// runDiscovery enumerates every pane, diffs against the registry's key set,
// inserts newly discovered panes (capturing initial content when
// captureInitial is true), drops removed panes, and emits the corresponding
// events. Discovery errors are logged and skipped, never fatal.
func (o *Observer) runDiscovery(ctx context.Context, captureInitial bool) {
	topo, err := controlmode.DiscoverAllPanes(ctx, o.cfg.MuxPath, o.cfg.SocketPath)
	if err != nil {
		discoveryLog.Warn("discovery_failed", slog.String("error", err.Error()))
		return
	}

	seen := make(map[string]controlmode.PaneTopology, len(topo))
	for _, p := range topo {
		seen[p.PaneID] = p
	}

	existing := o.registry.GetPaneIDs()

	for paneID, pt := range seen {
		if _, ok := existing[paneID]; ok {
			continue
		}
		state := registry.PaneState{
			PaneID:      pt.PaneID,
			SessionName: pt.SessionName,
			WindowName:  pt.WindowName,
			WindowIndex: pt.WindowIndex,
			PaneIndex:   pt.PaneIndex,
			Title:       pt.Title,
			Status:      registry.StatusRunning,
		}
		o.registry.Update(paneID, state)

		if captureInitial {
			lines, err := o.shim.CapturePane(ctx, pt.SessionName, paneID, o.cfg.CaptureLines)
			if err == nil {
				o.registry.UpdateOutput(paneID, lines, "")
			}
		}

		info := state.Info()
		o.emit(Event{Type: EventPaneDiscovered, Info: &info})
	}

	for paneID := range existing {
		if _, ok := seen[paneID]; ok {
			continue
		}
		o.debounce.Cancel(paneID)
		o.registry.Remove(paneID)
		o.emit(Event{Type: EventPaneRemoved, PaneID: paneID})
	}
}
