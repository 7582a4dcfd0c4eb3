package handlers

import (
	"net/http"

	"github.com/pawtrait-studio/pawtrait/internal/wizard"
)

// Download filenames are fixed per purchase path.
const (
	filenamePost           = "pawtrait-social-post.jpg"
	filenameStory          = "pawtrait-social-story.jpg"
	filenameArtwork        = "pawtrait-artwork.jpg"
	filenameArtworkAlt     = "pawtrait-artwork-alternate.jpg"
	filenamePrint          = "pawtrait-print.jpg"
	filenamePrintAlternate = "pawtrait-print-alternate.jpg"
)

// handleDownload serves the deliverables of a confirmed purchase. The social
// path bundles both generated variants plus the two fixed-aspect crops of
// the selected one; the print path offers the selected variant at full
// resolution, plus the alternate when the upsell was taken.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request, session *wizard.Session, artifact string) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := session.Snapshot()
	if snap.Step != wizard.StepConfirmation.String() || snap.Purchase == nil {
		h.writeError(w, "No confirmed purchase to download", http.StatusConflict)
		return
	}

	switch artifact {
	case "post", "story":
		if snap.Purchase.Option != wizard.OptionSocial {
			h.writeError(w, "Social exports require the social purchase option", http.StatusConflict)
			return
		}
		pack, err := h.machine.SocialExports(session)
		if err != nil {
			h.writeTransitionError(w, err)
			return
		}
		if artifact == "post" {
			serveImage(w, pack.Post, filenamePost)
			return
		}
		serveImage(w, pack.Story, filenameStory)
	case "artwork":
		if snap.Purchase.Option != wizard.OptionSocial {
			h.writeError(w, "Full-size artwork files belong to the social purchase option", http.StatusConflict)
			return
		}
		img, ok := session.Variant(snap.SelectedPreview)
		if !ok {
			h.writeError(w, "No selected artwork", http.StatusConflict)
			return
		}
		serveImage(w, img, filenameArtwork)
	case "print":
		if snap.Purchase.Option != wizard.OptionPrint {
			h.writeError(w, "Print file requires the print purchase option", http.StatusConflict)
			return
		}
		img, ok := session.Variant(snap.SelectedPreview)
		if !ok {
			h.writeError(w, "No selected artwork", http.StatusConflict)
			return
		}
		serveImage(w, img, filenamePrint)
	case "alternate":
		var filename string
		switch {
		case snap.Purchase.Option == wizard.OptionSocial:
			// Social delivery always bundles the non-selected variant.
			filename = filenameArtworkAlt
		case snap.Purchase.Option == wizard.OptionPrint && snap.Purchase.IncludeAlternate:
			filename = filenamePrintAlternate
		default:
			h.writeError(w, "Alternate variant was not included in the purchase", http.StatusConflict)
			return
		}
		img, ok := session.Variant(1 - snap.SelectedPreview)
		if !ok {
			h.writeError(w, "No alternate artwork", http.StatusConflict)
			return
		}
		serveImage(w, img, filename)
	default:
		h.writeError(w, "Unknown artifact", http.StatusNotFound)
	}
}

func serveImage(w http.ResponseWriter, data []byte, filename string) {
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := w.Write(data); err != nil {
		http.Error(w, "Failed to write image", http.StatusInternalServerError)
	}
}
