// Package handlers is the HTTP surface of the creation wizard. Every guard
// lives in the wizard machine; handlers translate outcomes into status codes
// and inline messages.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pawtrait-studio/pawtrait/internal/quota"
	"github.com/pawtrait-studio/pawtrait/internal/storage"
	"github.com/pawtrait-studio/pawtrait/internal/styles"
	"github.com/pawtrait-studio/pawtrait/internal/upload"
	"github.com/pawtrait-studio/pawtrait/internal/wizard"
)

type Handler struct {
	sessionStore *storage.SessionStore
	machine      *wizard.Machine
	tracker      *quota.Tracker
	catalog      *styles.Catalog
	fetcher      *upload.Fetcher
	uploadsDir   string
}

// New wires the wizard's HTTP surface.
func New(machine *wizard.Machine, tracker *quota.Tracker, catalog *styles.Catalog, uploadsDir string) *Handler {
	return &Handler{
		sessionStore: storage.New(),
		machine:      machine,
		tracker:      tracker,
		catalog:      catalog,
		fetcher:      upload.NewFetcher(),
		uploadsDir:   uploadsDir,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	}
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*wizard.Session, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func newSessionID() string {
	return fmt.Sprintf("session_%d", time.Now().UnixNano())
}

// writeSession responds with the session snapshot plus the current quota
// context, the payload every wizard action returns.
func (h *Handler) writeSession(w http.ResponseWriter, sess *wizard.Session) {
	remaining, err := h.tracker.Remaining()
	if err != nil {
		slog.Warn("Failed to read quota remaining", "err", err)
		remaining = 0
	}

	h.writeJSON(w, map[string]any{
		"session":         sess.Snapshot(),
		"quota_remaining": remaining,
		"quota_limit":     quota.DailyLimit,
	})
}

// writeTransitionError maps wizard outcomes to HTTP semantics: policy
// refusals and guard failures are client-visible conditions, not server
// faults.
func (h *Handler) writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wizard.ErrQuotaExhausted):
		remaining, _ := h.tracker.Remaining()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		if encErr := json.NewEncoder(w).Encode(map[string]any{
			"error":           "You've used all your free previews for today. Come back tomorrow!",
			"quota_remaining": remaining,
			"quota_limit":     quota.DailyLimit,
		}); encErr != nil {
			slog.Error("Unable to encode quota response", "err", encErr)
		}
	case errors.Is(err, wizard.ErrInvalidTransition),
		errors.Is(err, wizard.ErrPhotoNotReady),
		errors.Is(err, wizard.ErrEmptyPrompt),
		errors.Is(err, wizard.ErrUnknownStyle),
		errors.Is(err, wizard.ErrNoSuchVariant),
		errors.Is(err, wizard.ErrUnknownOption):
		h.writeError(w, err.Error(), http.StatusConflict)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}
