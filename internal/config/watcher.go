package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Eren-Nevin/tmux-observer/internal/logging"
)

var watchLog = logging.ForComponent(logging.CompConfig)

const watchDebounce = 100 * time.Millisecond

// FileWatcher watches the optional TOML override file and invokes onChange
// with the freshly re-resolved Config whenever debounce_ms,
// poll_interval_sec, or discovery_interval_sec change on disk. The daemon
// never restarts on a config edit; onChange is expected to apply the new
// observer tunables live.
type FileWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc

	onChange func(Config)
	base     Config
}

// NewFileWatcher creates a watcher for base.ConfigFile. Call Start in a
// goroutine.
func NewFileWatcher(base Config, onChange func(Config)) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &FileWatcher{
		path:     base.ConfigFile,
		watcher:  w,
		ctx:      ctx,
		cancel:   cancel,
		onChange: onChange,
		base:     base,
	}, nil
}

// Start watches the config file's parent directory (so the watch survives
// editors that replace the file via rename) and debounces rapid edits.
func (w *FileWatcher) Start() {
	dir := dirOf(w.path)
	if err := w.watcher.Add(dir); err != nil {
		watchLog.Warn("watch_add_failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}

	var mu sync.Mutex
	var timer *time.Timer

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, w.reload)
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			watchLog.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

func (w *FileWatcher) reload() {
	fc, err := loadFileConfig(w.path)
	if err != nil {
		watchLog.Warn("config_reload_failed", slog.String("error", err.Error()))
		return
	}
	cfg := w.base
	applyFileConfig(&cfg, fc)
	watchLog.Info("config_reloaded")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Stop shuts down the watcher.
func (w *FileWatcher) Stop() {
	w.cancel()
	_ = w.watcher.Close()
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
