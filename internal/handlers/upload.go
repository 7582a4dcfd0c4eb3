package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/pawtrait-studio/pawtrait/internal/upload"
	"github.com/pawtrait-studio/pawtrait/internal/wizard"
)

// handlePhoto attaches or removes the session's candidate photo. A photo can
// arrive as a multipart file upload or as a JSON body with an image URL.
func (h *Handler) handlePhoto(w http.ResponseWriter, r *http.Request, session *wizard.Session) {
	switch r.Method {
	case "POST":
		contentType := r.Header.Get("Content-Type")
		if strings.Contains(contentType, "application/json") {
			h.handleURLPhoto(w, r, session)
			return
		}
		h.handleFilePhoto(w, r, session)
	case "DELETE":
		if err := h.machine.RemovePhoto(session); err != nil {
			h.writeTransitionError(w, err)
			return
		}
		h.writeSession(w, session)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleFilePhoto(w http.ResponseWriter, r *http.Request, session *wizard.Session) {
	file, header, err := r.FormFile("photo")
	if err != nil {
		file, header, err = r.FormFile("file")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	// Read one byte past the ceiling so oversized uploads are rejected by
	// validation rather than silently truncated.
	data, err := io.ReadAll(io.LimitReader(file, upload.MaxFileBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	h.attach(w, r, session, data, mimeType)
}

func (h *Handler) handleURLPhoto(w http.ResponseWriter, r *http.Request, session *wizard.Session) {
	var request struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	data, mimeType, err := h.fetcher.Fetch(request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to fetch image URL: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.attach(w, r, session, data, mimeType)
}

// attach runs the machine's photo pipeline and reports validation failures
// inline with the refreshed session state, so the client can keep the user
// on the Upload step with a message.
func (h *Handler) attach(w http.ResponseWriter, r *http.Request, session *wizard.Session, data []byte, mimeType string) {
	err := h.machine.AttachPhoto(r.Context(), session, data, mimeType)

	var tooSmall *upload.TooSmallError
	switch {
	case err == nil:
		h.writeSession(w, session)
	case errors.As(err, &tooSmall),
		errors.Is(err, upload.ErrFileTooLarge),
		errors.Is(err, upload.ErrUnsupportedType),
		errors.Is(err, upload.ErrUnreadableImage):
		// Input errors: inline feedback, not system failures.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		if encErr := json.NewEncoder(w).Encode(map[string]any{
			"error":   err.Error(),
			"session": session.Snapshot(),
		}); encErr != nil {
			h.writeError(w, "Internal server error", http.StatusInternalServerError)
		}
	case errors.Is(err, wizard.ErrInvalidTransition):
		h.writeTransitionError(w, err)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}
