package observer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Eren-Nevin/tmux-observer/internal/controlmode"
	"github.com/Eren-Nevin/tmux-observer/internal/logging"
	"github.com/Eren-Nevin/tmux-observer/internal/registry"
)

var observerLog = logging.ForComponent(logging.CompObserver)

// Config holds the observer's tunable acquisition and reconnect options.
type Config struct {
	UseStreamingMode bool
	PollInterval     time.Duration
	DiscoveryInterval time.Duration
	CaptureLines     int
	DebounceDelay    time.Duration
	ReconnectDelay   time.Duration
	MaxReconnects    int
	MuxPath          string
	SocketPath       string
}

// DefaultConfig returns the documented out-of-the-box defaults.
func DefaultConfig() Config {
	return Config{
		UseStreamingMode:  true,
		PollInterval:      1 * time.Second,
		DiscoveryInterval: 5 * time.Second,
		CaptureLines:      500,
		DebounceDelay:     15 * time.Millisecond,
		ReconnectDelay:    1 * time.Second,
		MaxReconnects:     5,
		MuxPath:           "tmux",
	}
}

// Observer orchestrates the session manager, registry, and capture shim
// into the streaming-or-polling daemon loop.
type Observer struct {
	cfg      Config
	registry *registry.Registry
	onEvent  EventFunc

	manager *controlmode.SessionManager
	shim    *controlmode.Shim

	debounce *debouncer

	// pollInterval and discoveryInterval hold the live tunable tick periods
	// (nanoseconds) read by pollingLoop/discoveryLoop on every iteration, so
	// a config reload can retune them without restarting the loops.
	pollInterval      atomic.Int64
	discoveryInterval atomic.Int64

	mu   sync.Mutex
	mode Mode

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an Observer. It does not start any goroutines.
func New(cfg Config, reg *registry.Registry, onEvent EventFunc) *Observer {
	o := &Observer{
		cfg:      cfg,
		registry: reg,
		onEvent:  onEvent,
		mode:     ModeNone,
	}
	o.debounce = newDebouncer(cfg.DebounceDelay, o.emitPaneUpdate)
	o.pollInterval.Store(int64(cfg.PollInterval))
	o.discoveryInterval.Store(int64(cfg.DiscoveryInterval))
	return o
}

// SetTunables retunes the debounce window and the poll/discovery tick
// periods of a running Observer without restarting it. Safe to call from
// any goroutine, including a config file watcher's reload callback.
func (o *Observer) SetTunables(debounceDelay, pollInterval, discoveryInterval time.Duration) {
	if debounceDelay > 0 {
		o.debounce.SetDelay(debounceDelay)
	}
	if pollInterval > 0 {
		o.pollInterval.Store(int64(pollInterval))
	}
	if discoveryInterval > 0 {
		o.discoveryInterval.Store(int64(discoveryInterval))
	}
}

// Mode reports the current acquisition strategy.
func (o *Observer) Mode() Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// Shim returns the capture/command shim in use once Start has selected a
// mode. Safe to call from other goroutines only after Start returns.
func (o *Observer) Shim() *controlmode.Shim {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.shim
}

// Start selects streaming or polling mode, runs an initial discovery, and
// launches the background loops. If streaming setup fails, it transparently
// falls back to polling.
func (o *Observer) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	if o.cfg.UseStreamingMode {
		if err := o.startStreaming(runCtx); err == nil {
			return nil
		} else {
			observerLog.Warn("streaming_init_failed", slog.String("error", err.Error()))
		}
	}

	o.startPolling(runCtx)
	return nil
}

func (o *Observer) startStreaming(ctx context.Context) error {
	o.manager = controlmode.NewSessionManager(controlmode.ManagerOptions{
		MuxPath:        o.cfg.MuxPath,
		SocketPath:     o.cfg.SocketPath,
		OnPaneOutput:   o.handleStreamOutput,
		ReconnectDelay: o.cfg.ReconnectDelay,
		MaxReconnects:  o.cfg.MaxReconnects,
	})
	o.shim = controlmode.NewShim(o.manager, o.cfg.MuxPath, o.cfg.SocketPath)

	if err := o.manager.Start(ctx); err != nil {
		o.manager = nil
		return err
	}

	o.runDiscovery(ctx, true)

	o.mu.Lock()
	o.mode = ModeStreaming
	o.mu.Unlock()

	o.wg.Add(1)
	go o.discoveryLoop(ctx)

	observerLog.Info("mode_streaming")
	return nil
}

func (o *Observer) startPolling(ctx context.Context) {
	o.manager = nil
	o.shim = controlmode.NewShim(nil, o.cfg.MuxPath, o.cfg.SocketPath)

	o.runDiscovery(ctx, false)

	o.mu.Lock()
	o.mode = ModePolling
	o.mu.Unlock()

	o.wg.Add(2)
	go o.discoveryLoop(ctx)
	go o.pollingLoop(ctx)

	observerLog.Info("mode_polling")
}

// Stop stops the manager (if any), cancels discovery/polling and every
// pending debounce task. Idempotent.
func (o *Observer) Stop() {
	o.mu.Lock()
	if o.mode == ModeNone {
		o.mu.Unlock()
		return
	}
	o.mode = ModeNone
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.debounce.CancelAll()
	if o.manager != nil {
		o.manager.Stop()
		o.manager = nil
	}
	o.wg.Wait()
	observerLog.Info("stopped")
}

// discoveryIntervalDuration reads the live discovery tick period, falling
// back to the documented default if it was ever stored as non-positive.
func (o *Observer) discoveryIntervalDuration() time.Duration {
	d := time.Duration(o.discoveryInterval.Load())
	if d <= 0 {
		return DefaultConfig().DiscoveryInterval
	}
	return d
}

// pollIntervalDuration reads the live polling tick period, falling back to
// the documented default if it was ever stored as non-positive.
func (o *Observer) pollIntervalDuration() time.Duration {
	d := time.Duration(o.pollInterval.Load())
	if d <= 0 {
		return DefaultConfig().PollInterval
	}
	return d
}

func (o *Observer) discoveryLoop(ctx context.Context) {
	defer o.wg.Done()
	captureInitial := o.Mode() == ModeStreaming

	timer := time.NewTimer(o.discoveryIntervalDuration())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						observerLog.Error("discovery_loop_panic", slog.Any("recover", r))
					}
				}()
				o.runDiscovery(ctx, captureInitial)
			}()
			timer.Reset(o.discoveryIntervalDuration())
		}
	}
}

func (o *Observer) pollingLoop(ctx context.Context) {
	defer o.wg.Done()
	timer := time.NewTimer(o.pollIntervalDuration())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						observerLog.Error("polling_loop_panic", slog.Any("recover", r))
						time.Sleep(1 * time.Second)
					}
				}()
				o.pollOnce(ctx)
			}()
			timer.Reset(o.pollIntervalDuration())
		}
	}
}
