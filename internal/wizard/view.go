package wizard

import (
	"time"

	"github.com/pawtrait-studio/pawtrait/internal/artwork"
)

// CandidateView is the client-visible slice of a candidate image; raw bytes
// never leave the server through the session API.
type CandidateView struct {
	PreviewURL  string `json:"preview_url"`
	MIMEType    string `json:"mime_type"`
	PixelWidth  int    `json:"pixel_width"`
	PixelHeight int    `json:"pixel_height"`
}

// Snapshot is a consistent, copyable view of a session for the API layer.
type Snapshot struct {
	ID               string                     `json:"id"`
	Step             string                     `json:"step"`
	CreatedAt        time.Time                  `json:"created_at"`
	Candidate        *CandidateView             `json:"candidate,omitempty"`
	Assessment       *artwork.QualityAssessment `json:"assessment,omitempty"`
	SelectedStyleID  string                     `json:"selected_style_id,omitempty"`
	CustomPrompt     string                     `json:"custom_prompt,omitempty"`
	VariantCount     int                        `json:"variant_count"`
	GenerationFailed bool                       `json:"generation_failed"`
	SelectedPreview  int                        `json:"selected_preview"`
	Purchase         *PurchaseSelection         `json:"purchase,omitempty"`
}

// Snapshot returns a locked, copied view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:               s.ID,
		Step:             s.Step.String(),
		CreatedAt:        s.CreatedAt,
		VariantCount:     len(s.GeneratedImages),
		GenerationFailed: s.GenerationFailed,
		SelectedPreview:  s.SelectedPreview,
	}
	if s.Candidate != nil {
		snap.Candidate = &CandidateView{
			PreviewURL:  s.Candidate.PreviewURL,
			MIMEType:    s.Candidate.MIMEType,
			PixelWidth:  s.Candidate.PixelWidth,
			PixelHeight: s.Candidate.PixelHeight,
		}
	}
	if s.Assessment != nil {
		a := *s.Assessment
		snap.Assessment = &a
	}
	if s.SelectedStyle != nil {
		snap.SelectedStyleID = s.SelectedStyle.ID
	}
	snap.CustomPrompt = s.CustomPrompt
	if s.Purchase != nil {
		p := *s.Purchase
		snap.Purchase = &p
	}
	return snap
}

// Variant returns a copy of the generated image at index i.
func (s *Session) Variant(i int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.GeneratedImages) {
		return nil, false
	}
	out := make([]byte, len(s.GeneratedImages[i]))
	copy(out, s.GeneratedImages[i])
	return out, true
}
