package logging

import (
	"log/slog"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
)

// defaultPprofAddr is used when PprofEnabled is true but PprofAddr is unset.
// Distinct from the daemon's own HTTP/websocket port so both can run at once
// without a flag collision.
const defaultPprofAddr = "localhost:6061"

// startPprof starts a pprof HTTP server on addr, or defaultPprofAddr if
// addr is empty. Only called when PprofEnabled is true in config.
func startPprof(addr string) {
	if addr == "" {
		addr = defaultPprofAddr
	}
	go func() {
		Logger().Info("pprof_server_start", slog.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			Logger().Error("pprof_server_error", slog.String("error", err.Error()))
		}
	}()
}
