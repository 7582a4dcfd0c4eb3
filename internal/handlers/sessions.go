package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pawtrait-studio/pawtrait/internal/wizard"
)

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		sessionID := newSessionID()
		session := wizard.NewSession(sessionID)
		h.sessionStore.Set(sessionID, session)
		h.writeSession(w, session)
	case "GET":
		sessions := h.sessionStore.GetAll()
		snapshots := make([]wizard.Snapshot, 0, len(sessions))
		for _, session := range sessions {
			snapshots = append(snapshots, session.Snapshot())
		}
		h.writeJSON(w, snapshots)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSessionDetail routes /api/sessions/{id} and its action subpaths.
func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	sessionID, action, _ := strings.Cut(rest, "/")

	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	switch {
	case action == "":
		if r.Method != "GET" {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.writeSession(w, session)
	case action == "photo":
		h.handlePhoto(w, r, session)
	case action == "advance":
		h.postAction(w, r, session, h.machine.AdvanceToStyle)
	case action == "back":
		h.handleBack(w, r, session)
	case action == "style":
		h.handleStyleSelect(w, r, session)
	case action == "custom-style":
		h.handleCustomStyle(w, r, session)
	case action == "preview-select":
		h.handlePreviewSelect(w, r, session)
	case action == "purchase":
		h.handlePurchase(w, r, session)
	case action == "reset":
		if r.Method != "POST" {
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.machine.Reset(session)
		h.writeSession(w, session)
	case strings.HasPrefix(action, "previews/"):
		h.handlePreviewImage(w, r, session, strings.TrimPrefix(action, "previews/"))
	case strings.HasPrefix(action, "downloads/"):
		h.handleDownload(w, r, session, strings.TrimPrefix(action, "downloads/"))
	default:
		h.writeError(w, "Unknown action", http.StatusNotFound)
	}
}

// postAction runs a simple no-body transition.
func (h *Handler) postAction(w http.ResponseWriter, r *http.Request, session *wizard.Session, act func(*wizard.Session) error) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := act(session); err != nil {
		h.writeTransitionError(w, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request, session *wizard.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var request struct {
		To string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	switch request.To {
	case "upload":
		err = h.machine.BackToUpload(session)
	case "style":
		err = h.machine.BackToStyle(session)
	case "preview":
		err = h.machine.BackToPreview(session)
	default:
		h.writeError(w, "Invalid target step. Must be 'upload', 'style', or 'preview'", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) handleStyleSelect(w http.ResponseWriter, r *http.Request, session *wizard.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var request struct {
		StyleID string `json:"style_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.StyleID == "" {
		h.writeError(w, "style_id is required", http.StatusBadRequest)
		return
	}

	if err := h.machine.SelectStyle(r.Context(), session, request.StyleID); err != nil {
		h.writeTransitionError(w, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) handleCustomStyle(w http.ResponseWriter, r *http.Request, session *wizard.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var request struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.machine.SubmitCustomPrompt(r.Context(), session, request.Text); err != nil {
		h.writeTransitionError(w, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) handlePreviewSelect(w http.ResponseWriter, r *http.Request, session *wizard.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var request struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.machine.SelectPreview(session, request.Index); err != nil {
		h.writeTransitionError(w, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request, session *wizard.Session) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var selection wizard.PurchaseSelection
	if err := json.NewDecoder(r.Body).Decode(&selection); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.machine.ConfirmPurchase(session, selection); err != nil {
		h.writeTransitionError(w, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) handlePreviewImage(w http.ResponseWriter, r *http.Request, session *wizard.Session, indexStr string) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		h.writeError(w, "Invalid preview index", http.StatusBadRequest)
		return
	}

	img, ok := session.Variant(index)
	if !ok {
		h.writeError(w, "No generated image at that index", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(img))
	if _, err := w.Write(img); err != nil {
		h.writeError(w, "Failed to write image", http.StatusInternalServerError)
	}
}
