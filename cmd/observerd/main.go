// Command observerd runs the tmux pane observer daemon: it discovers tmux
// panes, watches their output and input-request state, and exposes a
// snapshot/push API over HTTP and websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Eren-Nevin/tmux-observer/internal/config"
	"github.com/Eren-Nevin/tmux-observer/internal/controlmode"
	"github.com/Eren-Nevin/tmux-observer/internal/logging"
	"github.com/Eren-Nevin/tmux-observer/internal/observer"
	"github.com/Eren-Nevin/tmux-observer/internal/registry"
	"github.com/Eren-Nevin/tmux-observer/internal/web"
)

const version = "0.1.0"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	listenAddr := flag.String("listen", "", "HTTP/websocket listen address (overrides config)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("observerd v%s\n", version)
		return
	}

	cfg := config.Load()
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log dir: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Debug:                 cfg.Debug,
		LogDir:                cfg.LogDir,
		Level:                 cfg.LogLevel,
		Format:                "json",
		MaxSizeMB:             10,
		MaxBackups:            5,
		MaxAgeDays:            10,
		Compress:              true,
		RingBufferSize:        10 * 1024 * 1024,
		AggregateIntervalSecs: 30,
	})
	defer logging.Shutdown()

	log := logging.ForComponent(logging.CompObserver)
	log.Info("starting", slog.String("version", version), slog.String("listen_addr", cfg.ListenAddr))

	if !controlmode.MuxAvailable(cfg.Observer.MuxPath) {
		fmt.Fprintln(os.Stderr, "Error: tmux not found in PATH")
		os.Exit(1)
	}

	reg := registry.New(cfg.Observer.CaptureLines)

	var server *web.Server
	obs := observer.New(cfg.Observer, reg, func(ev observer.Event) {
		if server != nil {
			server.OnEvent(ev)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := obs.Start(ctx); err != nil {
		log.Error("observer_start_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("observer_started", slog.String("mode", string(obs.Mode())))

	server = web.NewServer(web.Config{ListenAddr: cfg.ListenAddr}, reg, obs.Shim())

	go func() {
		if err := server.Start(); err != nil {
			log.Error("web_server_error", slog.String("error", err.Error()))
		}
	}()
	fmt.Printf("observerd listening on http://%s\n", server.Addr())

	watcher, err := config.NewFileWatcher(cfg, func(newCfg config.Config) {
		obs.SetTunables(newCfg.Observer.DebounceDelay, newCfg.Observer.PollInterval, newCfg.Observer.DiscoveryInterval)
		log.Info("config_reloaded",
			slog.Duration("debounce", newCfg.Observer.DebounceDelay),
			slog.Duration("poll_interval", newCfg.Observer.PollInterval),
			slog.Duration("discovery_interval", newCfg.Observer.DiscoveryInterval))
	})
	if err != nil {
		log.Warn("config_watcher_init_failed", slog.String("error", err.Error()))
	} else {
		go watcher.Start()
		defer watcher.Stop()
	}

	usr1Chan := make(chan os.Signal, 1)
	signal.Notify(usr1Chan, syscall.SIGUSR1)
	go func() {
		for range usr1Chan {
			dumpPath := filepath.Join(cfg.LogDir, fmt.Sprintf("crash-dump-%d.jsonl", time.Now().Unix()))
			if err := logging.DumpRingBuffer(dumpPath); err != nil {
				log.Error("crash_dump_failed", slog.String("error", err.Error()))
			} else {
				log.Info("crash_dump_written", slog.String("path", dumpPath))
			}
		}
	}()

	<-ctx.Done()
	log.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("web_shutdown_failed", slog.String("error", err.Error()))
	}
	obs.Stop()
	log.Info("stopped")
}
