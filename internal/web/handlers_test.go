package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Eren-Nevin/tmux-observer/internal/controlmode"
	"github.com/Eren-Nevin/tmux-observer/internal/registry"
)

func requireTmux(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not available")
	}
}

func TestHandleHealthz(t *testing.T) {
	reg := registry.New(100)
	s := NewServer(Config{}, reg, controlmode.NewShim(nil, "tmux", ""))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealthz(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["ok"])
}

func TestHandlePanes_Empty(t *testing.T) {
	reg := registry.New(100)
	s := NewServer(Config{}, reg, controlmode.NewShim(nil, "tmux", ""))

	req := httptest.NewRequest(http.MethodGet, "/api/panes", nil)
	rec := httptest.NewRecorder()
	s.handlePanes(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var panes []registry.PaneState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &panes))
	require.Empty(t, panes)
}

func TestHandlePaneByID_NotFound(t *testing.T) {
	reg := registry.New(100)
	s := NewServer(Config{}, reg, controlmode.NewShim(nil, "tmux", ""))

	req := httptest.NewRequest(http.MethodGet, "/api/panes/"+url.PathEscape("%99"), nil)
	rec := httptest.NewRecorder()
	s.handlePaneByID(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlePaneByID_Snapshot(t *testing.T) {
	reg := registry.New(100)
	reg.Update("%1", registry.PaneState{PaneID: "%1", SessionName: "main", Status: registry.StatusRunning})
	s := NewServer(Config{}, reg, controlmode.NewShim(nil, "tmux", ""))

	req := httptest.NewRequest(http.MethodGet, "/api/panes/"+url.PathEscape("%1"), nil)
	rec := httptest.NewRecorder()
	s.handlePaneByID(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var pane registry.PaneState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pane))
	require.Equal(t, "%1", pane.PaneID)
}

func TestHandlePaneByID_MethodNotAllowed(t *testing.T) {
	reg := registry.New(100)
	reg.Update("%1", registry.PaneState{PaneID: "%1", SessionName: "main", Status: registry.StatusRunning})
	s := NewServer(Config{}, reg, controlmode.NewShim(nil, "tmux", ""))

	req := httptest.NewRequest(http.MethodPost, "/api/panes/"+url.PathEscape("%1"), nil)
	rec := httptest.NewRecorder()
	s.handlePaneByID(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandlePaneInput_ClearsRequestOnSuccess(t *testing.T) {
	requireTmux(t)
	socket := t.TempDir() + "/observer-test.sock"
	name := "obs-web-test-" + uuid.NewString()[:8]
	require.NoError(t, exec.Command("tmux", "-S", socket, "new-session", "-d", "-s", name).Run())
	t.Cleanup(func() { _ = exec.Command("tmux", "-S", socket, "kill-session", "-t", name).Run() })

	paneID := name + ":0.0"
	reg := registry.New(100)
	reg.Update(paneID, registry.PaneState{PaneID: paneID, SessionName: name, Status: registry.StatusRunning})
	reg.SetInputRequest(paneID, registry.InputRequest{InputType: registry.InputText, Prompt: "Name?"})

	s := NewServer(Config{}, reg, controlmode.NewShim(nil, "tmux", socket))

	body, _ := json.Marshal(inputRequestBody{Text: "alice", Literal: true, Enter: true})
	req := httptest.NewRequest(http.MethodPost, "/api/panes/"+paneID+"/input", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handlePaneInput(rec, req, paneID)

	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		p, ok := reg.Get(paneID)
		return ok && p.InputRequest == nil
	}, 2*time.Second, 50*time.Millisecond)
}

func TestHandlePaneInput_UnknownPane(t *testing.T) {
	reg := registry.New(100)
	s := NewServer(Config{}, reg, controlmode.NewShim(nil, "tmux", ""))

	req := httptest.NewRequest(http.MethodPost, "/api/panes/"+url.PathEscape("%missing")+"/input", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	s.handlePaneInput(rec, req, "%missing")

	require.Equal(t, http.StatusNotFound, rec.Code)
}
