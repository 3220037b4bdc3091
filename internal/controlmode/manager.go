package controlmode

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Eren-Nevin/tmux-observer/internal/logging"
)

var managerLog = logging.ForComponent(logging.CompControl)

// DefaultReconnectDelay and DefaultMaxReconnects are the out-of-the-box
// reconnect policy defaults.
const (
	DefaultReconnectDelay = 1 * time.Second
	DefaultMaxReconnects  = 5
)

// PaneOutputFunc is invoked with (sessionName, paneID, data) for every
// %output notification routed through any managed client.
type PaneOutputFunc func(sessionName, paneID, data string)

// SessionsChangedFunc is invoked when any client reports %sessions-changed.
type SessionsChangedFunc func()

// ManagerOptions configures a SessionManager.
type ManagerOptions struct {
	MuxPath          string
	SocketPath       string
	OnPaneOutput     PaneOutputFunc
	OnSessionsChange SessionsChangedFunc
	ReconnectDelay   time.Duration
	MaxReconnects    int
}

// SessionManager discovers multiplexer sessions, owns one SessionClient per
// session, and reconnects lost sessions with bounded exponential back-off.
type SessionManager struct {
	opts ManagerOptions

	mu              sync.Mutex
	clients         map[string]*SessionClient
	reconnectCancel map[string]context.CancelFunc
	running         bool
}

// NewSessionManager constructs a manager. Call Start to begin discovery.
func NewSessionManager(opts ManagerOptions) *SessionManager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = DefaultMaxReconnects
	}
	return &SessionManager{
		opts:            opts,
		clients:         make(map[string]*SessionClient),
		reconnectCancel: make(map[string]context.CancelFunc),
	}
}

// Start performs initial discovery and attach. Idempotent.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.mu.Unlock()

	managerLog.Info("manager_start")
	return m.RefreshSessions(ctx)
}

// Stop cancels all reconnect tasks and stops all clients.
func (m *SessionManager) Stop() {
	m.mu.Lock()
	m.running = false
	for name, cancel := range m.reconnectCancel {
		cancel()
		delete(m.reconnectCancel, name)
	}
	clients := m.clients
	m.clients = make(map[string]*SessionClient)
	m.mu.Unlock()

	for _, c := range clients {
		c.Stop()
	}
	managerLog.Info("manager_stop")
}

// RefreshSessions lists current sessions and creates/drops clients to match.
func (m *SessionManager) RefreshSessions(ctx context.Context) error {
	sessions, err := ListSessions(ctx, m.opts.MuxPath, m.opts.SocketPath)
	if err != nil {
		return err
	}
	current := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		current[s] = true
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	var toCreate []string
	var toDrop []*SessionClient
	for name := range current {
		if _, ok := m.clients[name]; !ok {
			toCreate = append(toCreate, name)
		}
	}
	for name, c := range m.clients {
		if !current[name] {
			toDrop = append(toDrop, c)
			delete(m.clients, name)
		}
	}
	m.mu.Unlock()

	for _, c := range toDrop {
		c.Stop()
	}
	for _, name := range toCreate {
		m.createClient(name)
	}
	return nil
}

// GetClient returns the client for a session, if connected.
func (m *SessionManager) GetClient(sessionName string) (*SessionClient, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[sessionName]
	return c, ok
}

// SessionNames returns the currently tracked session names.
func (m *SessionManager) SessionNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	return names
}

func (m *SessionManager) createClient(name string) {
	client := NewSessionClient(ClientOptions{
		SessionName: name,
		MuxPath:     m.opts.MuxPath,
		SocketPath:  m.opts.SocketPath,
		OnOutput: func(paneID, data string) {
			if m.opts.OnPaneOutput != nil {
				m.opts.OnPaneOutput(name, paneID, data)
			}
		},
		OnSessionChange: func(event string) {
			if event == "sessions_changed" {
				managerLog.Info("sessions_changed")
				go func() { _ = m.RefreshSessions(context.Background()) }()
				if m.opts.OnSessionsChange != nil {
					m.opts.OnSessionsChange()
				}
			}
		},
		OnDisconnect: m.handleDisconnect,
	})

	if err := client.Start(); err != nil {
		managerLog.Error("client_start_failed", slog.String("session", name), slog.String("error", err.Error()))
		return
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		client.Stop()
		return
	}
	m.clients[name] = client
	m.mu.Unlock()
}

func (m *SessionManager) handleDisconnect(sessionName string) {
	managerLog.Warn("client_disconnected", slog.String("session", sessionName))

	m.mu.Lock()
	delete(m.clients, sessionName)
	running := m.running
	_, alreadyReconnecting := m.reconnectCancel[sessionName]
	var cancel context.CancelFunc
	var ctx context.Context
	if running && !alreadyReconnecting {
		ctx, cancel = context.WithCancel(context.Background())
		m.reconnectCancel[sessionName] = cancel
	}
	m.mu.Unlock()

	if running && !alreadyReconnecting {
		go m.reconnectSession(ctx, sessionName)
	}
}

func (m *SessionManager) reconnectSession(ctx context.Context, sessionName string) {
	defer func() {
		m.mu.Lock()
		delete(m.reconnectCancel, sessionName)
		m.mu.Unlock()
	}()

	delay := m.opts.ReconnectDelay

	for attempt := 0; attempt < m.opts.MaxReconnects; attempt++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		managerLog.Info("reconnect_attempt",
			slog.String("session", sessionName),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		m.mu.Lock()
		running := m.running
		m.mu.Unlock()
		if !running {
			return
		}

		sessions, err := ListSessions(context.Background(), m.opts.MuxPath, m.opts.SocketPath)
		if err != nil {
			managerLog.Warn("reconnect_list_failed", slog.String("session", sessionName), slog.String("error", err.Error()))
			delay *= 2
			continue
		}
		found := false
		for _, s := range sessions {
			if s == sessionName {
				found = true
				break
			}
		}
		if !found {
			managerLog.Info("reconnect_session_gone", slog.String("session", sessionName))
			return
		}

		m.mu.Lock()
		if _, ok := m.clients[sessionName]; ok {
			m.mu.Unlock()
			return // already reconnected by a concurrent path
		}
		m.mu.Unlock()

		m.createClient(sessionName)

		m.mu.Lock()
		_, connected := m.clients[sessionName]
		m.mu.Unlock()
		if connected {
			managerLog.Info("reconnected", slog.String("session", sessionName))
			return
		}

		delay *= 2
	}

	managerLog.Warn("reconnect_exhausted", slog.String("session", sessionName))
}
