// Package wizard drives the five-step creation flow: Upload, Style, Preview,
// Purchase, Confirmation. Every forward transition has an explicit guard; no
// step is ever skipped silently.
package wizard

import (
	"sync"
	"time"

	"github.com/pawtrait-studio/pawtrait/internal/artwork"
	"github.com/pawtrait-studio/pawtrait/internal/styles"
	"github.com/pawtrait-studio/pawtrait/internal/upload"
)

// Step is the wizard's position.
type Step int

const (
	StepUpload Step = iota
	StepStyle
	StepPreview
	StepPurchase
	StepConfirmation
)

var stepNames = map[Step]string{
	StepUpload:       "upload",
	StepStyle:        "style",
	StepPreview:      "preview",
	StepPurchase:     "purchase",
	StepConfirmation: "confirmation",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Purchase options. No real payment is executed for either; the purchase
// step only records the choice.
const (
	// OptionSocial is the digital-only delivery: both variants plus the
	// social pack crops.
	OptionSocial = "social"
	// OptionPrint is the physical option, a single high-resolution file
	// handed to print fulfillment.
	OptionPrint = "print"
)

// PurchaseSelection records the mocked checkout choice.
type PurchaseSelection struct {
	Option string `json:"option"`
	// IncludeAlternate is the print upsell: bundle the non-selected
	// variant as a second digital file.
	IncludeAlternate bool `json:"include_alternate"`
}

// Session is one live wizard instance. All fields besides ID are cleared on
// reset. Access goes through Machine, which holds the lock.
type Session struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time

	Step       Step
	Candidate  *upload.CandidateImage
	Assessment *artwork.QualityAssessment

	SelectedStyle *styles.Style
	CustomPrompt  string

	GeneratedImages  [][]byte
	GenerationFailed bool

	SelectedPreview int // index into GeneratedImages, -1 when none
	Purchase        *PurchaseSelection

	// epoch increments whenever the session leaves the Preview step other
	// than forward (reset, back to Style); an in-flight generation carrying
	// a stale epoch discards its result instead of writing into the session.
	epoch int
}

// NewSession returns a fresh session at the Upload step.
func NewSession(id string) *Session {
	return &Session{
		ID:              id,
		CreatedAt:       time.Now(),
		Step:            StepUpload,
		SelectedPreview: -1,
	}
}

// AlternateIndex reports the index of the non-selected variant, or -1 when
// no selection has been made.
func (s *Session) AlternateIndex() int {
	if s.SelectedPreview < 0 || len(s.GeneratedImages) != styles.PromptVariants {
		return -1
	}
	return 1 - s.SelectedPreview
}
