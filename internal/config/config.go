// Package config loads daemon configuration from environment variables,
// with an optional TOML override file that is hot-reloaded via fsnotify.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Eren-Nevin/tmux-observer/internal/observer"
)

// envPrefix namespaces every recognized environment variable.
const envPrefix = "OBSERVER_"

// FileConfig is the schema of the optional ~/.tmux-observer/config.toml
// override file. Only the fields the daemon allows to hot-reload live here.
type FileConfig struct {
	DebounceMS             *int64 `toml:"debounce_ms"`
	PollIntervalSec        *float64 `toml:"poll_interval_sec"`
	DiscoveryIntervalSec   *float64 `toml:"discovery_interval_sec"`
}

// Config is the fully resolved daemon configuration.
type Config struct {
	Observer observer.Config

	LogDir   string
	LogLevel string
	Debug    bool

	ListenAddr string

	ConfigFile string
}

// Load resolves defaults, then the optional TOML file (if present), then
// environment variables, in that precedence order (env wins).
func Load() Config {
	cfg := Config{
		Observer:   observer.DefaultConfig(),
		LogDir:     defaultLogDir(),
		LogLevel:   "info",
		ListenAddr: "127.0.0.1:7890",
		ConfigFile: defaultConfigFile(),
	}

	if v, ok := envString("CONFIG_FILE"); ok {
		cfg.ConfigFile = v
	}

	if fc, err := loadFileConfig(cfg.ConfigFile); err == nil {
		applyFileConfig(&cfg, fc)
	}

	applyEnv(&cfg)
	return cfg
}

func defaultConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".tmux-observer", "config.toml")
	}
	return filepath.Join(home, ".tmux-observer", "config.toml")
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".tmux-observer")
	}
	return filepath.Join(home, ".tmux-observer")
}

func loadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	if _, err := os.Stat(path); err != nil {
		return fc, err
	}
	_, err := toml.DecodeFile(path, &fc)
	return fc, err
}

func applyFileConfig(cfg *Config, fc FileConfig) {
	if fc.DebounceMS != nil {
		cfg.Observer.DebounceDelay = time.Duration(*fc.DebounceMS) * time.Millisecond
	}
	if fc.PollIntervalSec != nil {
		cfg.Observer.PollInterval = time.Duration(*fc.PollIntervalSec * float64(time.Second))
	}
	if fc.DiscoveryIntervalSec != nil {
		cfg.Observer.DiscoveryInterval = time.Duration(*fc.DiscoveryIntervalSec * float64(time.Second))
	}
}

func applyEnv(cfg *Config) {
	if v, ok := envBool("USE_STREAMING_MODE"); ok {
		cfg.Observer.UseStreamingMode = v
	}
	if v, ok := envFloat("POLL_INTERVAL_SEC"); ok {
		cfg.Observer.PollInterval = time.Duration(v * float64(time.Second))
	}
	if v, ok := envFloat("DISCOVERY_INTERVAL_SEC"); ok {
		cfg.Observer.DiscoveryInterval = time.Duration(v * float64(time.Second))
	}
	if v, ok := envInt("CAPTURE_LINES"); ok {
		cfg.Observer.CaptureLines = int(v)
	}
	if v, ok := envInt("DEBOUNCE_MS"); ok {
		cfg.Observer.DebounceDelay = time.Duration(v) * time.Millisecond
	}
	if v, ok := envFloat("RECONNECT_DELAY_SEC"); ok {
		cfg.Observer.ReconnectDelay = time.Duration(v * float64(time.Second))
	}
	if v, ok := envInt("MAX_RECONNECTS"); ok {
		cfg.Observer.MaxReconnects = int(v)
	}
	if v, ok := envString("MUX_SOCKET"); ok {
		cfg.Observer.SocketPath = v
	}
	if v, ok := envString("LOG_DIR"); ok {
		cfg.LogDir = v
	}
	if v, ok := envString("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := envBool("DEBUG"); ok {
		cfg.Debug = v
	}
	if v, ok := envString("LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := envString("CONFIG_FILE"); ok {
		cfg.ConfigFile = v
	}
}

func envString(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	return v, true
}

func envBool(name string) (bool, bool) {
	v, ok := envString(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false
	}
	return b, true
}

func envFloat(name string) (float64, bool) {
	v, ok := envString(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envInt(name string) (int64, bool) {
	v, ok := envString(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
