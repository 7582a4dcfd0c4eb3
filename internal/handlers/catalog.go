package handlers

import (
	"net/http"

	"github.com/pawtrait-studio/pawtrait/internal/quota"
)

// HandleStyles lists the art style catalog. Prompts are server-side only;
// the client sees titles, taglines and thumbnails.
func (h *Handler) HandleStyles(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type styleView struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Tagline   string `json:"tagline"`
		Thumbnail string `json:"thumbnail"`
	}

	all := h.catalog.All()
	views := make([]styleView, 0, len(all))
	for _, s := range all {
		views = append(views, styleView{ID: s.ID, Title: s.Title, Tagline: s.Tagline, Thumbnail: s.Thumbnail})
	}
	h.writeJSON(w, views)
}

// HandleQuota reports the remaining free previews for today.
func (h *Handler) HandleQuota(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	remaining, err := h.tracker.Remaining()
	if err != nil {
		h.writeError(w, "Failed to read quota: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]int{
		"remaining": remaining,
		"limit":     quota.DailyLimit,
	})
}
