package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	writeJSON(w, map[string]any{
		"ok":         true,
		"pane_count": s.registry.Count(),
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

// handlePanes serves GET /api/panes: a snapshot of every tracked pane.
func (s *Server) handlePanes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	writeJSON(w, s.registry.GetAll())
}

// handlePaneByID routes GET /api/panes/{pane_id} and
// POST /api/panes/{pane_id}/input.
func (s *Server) handlePaneByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/panes/")
	if rest == "" {
		writeAPIError(w, http.StatusBadRequest, "INVALID_REQUEST", "pane id is required")
		return
	}

	if paneID, ok := strings.CutSuffix(rest, "/input"); ok {
		s.handlePaneInput(w, r, paneID)
		return
	}

	if strings.Contains(rest, "/") {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}

	s.handlePaneSnapshot(w, r, rest)
}

func (s *Server) handlePaneSnapshot(w http.ResponseWriter, r *http.Request, paneID string) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	pane, ok := s.registry.Get(paneID)
	if !ok {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "pane not found")
		return
	}
	writeJSON(w, pane)
}

type inputRequestBody struct {
	Text    string `json:"text"`
	Literal bool   `json:"literal"`
	Enter   bool   `json:"enter"`
}

// handlePaneInput serves POST /api/panes/{pane_id}/input: write-back of
// keys to a pane via the capture/command shim, used to answer an input
// request or send arbitrary input. Clears the pane's pending input request
// on success.
func (s *Server) handlePaneInput(w http.ResponseWriter, r *http.Request, paneID string) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}

	pane, ok := s.registry.Get(paneID)
	if !ok {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "pane not found")
		return
	}

	var body inputRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid json body")
		return
	}

	if err := s.shim.SendKeys(r.Context(), pane.SessionName, paneID, body.Text, body.Literal, body.Enter); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "SEND_FAILED", err.Error())
		return
	}

	s.registry.ClearInputRequest(paneID)
	writeJSON(w, map[string]any{"ok": true})
}
