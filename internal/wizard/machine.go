package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pawtrait-studio/pawtrait/internal/artwork"
	"github.com/pawtrait-studio/pawtrait/internal/export"
	"github.com/pawtrait-studio/pawtrait/internal/quota"
	"github.com/pawtrait-studio/pawtrait/internal/styles"
	"github.com/pawtrait-studio/pawtrait/internal/upload"
)

var (
	// ErrInvalidTransition is returned when an action does not apply to
	// the session's current step. The session is left unchanged.
	ErrInvalidTransition = errors.New("transition not permitted from current step")

	// ErrPhotoNotReady blocks Upload -> Style until a candidate exists
	// and its assessment says suitable.
	ErrPhotoNotReady = errors.New("a suitable photo is required before choosing a style")

	// ErrQuotaExhausted is the policy refusal when the daily free-preview
	// allowance is used up. Not a system failure.
	ErrQuotaExhausted = errors.New("daily free preview limit reached")

	// ErrUnknownStyle is returned for a style id outside the catalog.
	ErrUnknownStyle = errors.New("unknown style")

	// ErrEmptyPrompt is returned for a blank custom style description.
	ErrEmptyPrompt = errors.New("custom style description is empty")

	// ErrNoSuchVariant is returned for a preview selection out of range.
	ErrNoSuchVariant = errors.New("no generated variant at that index")

	// ErrUnknownOption is returned for a purchase option outside
	// social/print.
	ErrUnknownOption = errors.New("unknown purchase option")
)

// ArtService is the slice of the remote art client the machine needs.
// Satisfied by *artwork.Client.
type ArtService interface {
	AnalyzeQuality(ctx context.Context, image []byte, mimeType string) artwork.QualityAssessment
	GenerateVariants(ctx context.Context, image []byte, mimeType string, prompts []string, concurrent bool) ([][]byte, error)
}

// Machine applies transitions to wizard sessions. It owns the guards; the
// HTTP layer only reports outcomes.
type Machine struct {
	art      ArtService
	quota    *quota.Tracker
	ingestor *upload.Ingestor
	catalog  *styles.Catalog

	// Concurrent switches variant generation from the default sequential
	// dispatch to parallel dispatch. Order is preserved either way.
	Concurrent bool
}

func NewMachine(art ArtService, tracker *quota.Tracker, ingestor *upload.Ingestor, catalog *styles.Catalog) *Machine {
	return &Machine{
		art:      art,
		quota:    tracker,
		ingestor: ingestor,
		catalog:  catalog,
	}
}

// AttachPhoto validates and ingests an uploaded photo, replacing any prior
// candidate (whose preview handle is released). On acceptance the remote
// quality analysis runs; its verdict gates progression but its failure never
// blocks (the client fails open). Validation errors leave the session's
// candidate empty and are reported inline; the session stays at Upload.
func (m *Machine) AttachPhoto(ctx context.Context, sess *Session, data []byte, mimeType string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepUpload {
		return ErrInvalidTransition
	}

	candidate, err := m.ingestor.ValidateAndIngest(data, mimeType)

	var tooSmall *upload.TooSmallError
	if errors.As(err, &tooSmall) {
		// Keep the rejected photo on screen with a blocking verdict, the
		// same way an unsuitable analysis is shown.
		m.ingestor.Release(sess.Candidate)
		sess.Candidate = candidate
		sess.Assessment = &artwork.QualityAssessment{
			IsSuitable: false,
			Feedback:   tooSmall.Error(),
		}
		return err
	}
	if err != nil {
		return err
	}

	m.ingestor.Release(sess.Candidate)
	sess.Candidate = candidate
	sess.Assessment = nil

	assessment := m.art.AnalyzeQuality(ctx, candidate.RawBytes, candidate.MIMEType)
	sess.Assessment = &assessment
	slog.Info("Photo analyzed", "session_id", sess.ID, "suitable", assessment.IsSuitable)
	return nil
}

// RemovePhoto discards the current candidate so another photo can be chosen.
func (m *Machine) RemovePhoto(sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepUpload {
		return ErrInvalidTransition
	}
	m.ingestor.Release(sess.Candidate)
	sess.Candidate = nil
	sess.Assessment = nil
	return nil
}

// AdvanceToStyle moves Upload -> Style. Blocked while no candidate exists,
// analysis is still pending, or the assessment says unsuitable; a blocked
// advance is a no-op on the session.
func (m *Machine) AdvanceToStyle(sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepUpload {
		return ErrInvalidTransition
	}
	if sess.Candidate == nil || sess.Assessment == nil || !sess.Assessment.IsSuitable {
		return ErrPhotoNotReady
	}
	sess.Step = StepStyle
	return nil
}

// SelectStyle handles Style -> Preview for a catalog style: the quota gate
// runs first, and only on a consumed slot does the machine enter Preview and
// begin generation.
func (m *Machine) SelectStyle(ctx context.Context, sess *Session, styleID string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepStyle {
		return ErrInvalidTransition
	}
	style, ok := m.catalog.Get(styleID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStyle, styleID)
	}

	if err := m.consumeQuota(); err != nil {
		return err
	}

	sess.SelectedStyle = &style
	sess.CustomPrompt = ""
	sess.Step = StepPreview
	m.generate(ctx, sess, style.Prompts)
	return nil
}

// SubmitCustomPrompt handles Style -> Preview for a free-text style. The
// text is wrapped into two derived prompts (a direct and a creative
// interpretation), mirroring the two-variant design of catalog styles.
func (m *Machine) SubmitCustomPrompt(ctx context.Context, sess *Session, text string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepStyle {
		return ErrInvalidTransition
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyPrompt
	}

	if err := m.consumeQuota(); err != nil {
		return err
	}

	sess.SelectedStyle = nil
	sess.CustomPrompt = text
	sess.Step = StepPreview
	m.generate(ctx, sess, derivedPrompts(text))
	return nil
}

func (m *Machine) consumeQuota() error {
	ok, err := m.quota.ConsumeIfAvailable()
	if err != nil {
		return fmt.Errorf("quota check failed: %w", err)
	}
	if !ok {
		return ErrQuotaExhausted
	}
	return nil
}

// generate runs the variant pipeline. A failure leaves the session in
// Preview with GenerationFailed set and no images; the consumed quota slot
// is not returned. A result arriving after a reset is discarded.
func (m *Machine) generate(ctx context.Context, sess *Session, prompts []string) {
	sess.GeneratedImages = nil
	sess.GenerationFailed = false
	sess.SelectedPreview = -1

	epoch := sess.epoch
	image, mimeType := sess.Candidate.RawBytes, sess.Candidate.MIMEType

	sess.mu.Unlock()
	results, err := m.art.GenerateVariants(ctx, image, mimeType, prompts, m.Concurrent)
	sess.mu.Lock()

	if sess.epoch != epoch {
		slog.Info("Discarding stale generation result", "session_id", sess.ID)
		return
	}
	if err != nil {
		slog.Error("Generation failed", "session_id", sess.ID, "err", err)
		sess.GenerationFailed = true
		return
	}
	sess.GeneratedImages = results
}

// derivedPrompts doubles a custom description into the catalog's two-variant
// shape: one faithful interpretation and one creative one.
func derivedPrompts(text string) []string {
	return []string{
		"A high-quality, detailed artistic rendering of the pet in the following style: " + text +
			". Stay faithful to this description. Polished, gallery-worthy result.",
		"A creative, unexpected reinterpretation of the pet inspired by: " + text +
			". Take artistic liberties with composition, lighting, and mood while keeping the pet recognizable.",
	}
}

// BackToUpload moves Style -> Upload.
func (m *Machine) BackToUpload(sess *Session) error {
	return m.back(sess, StepStyle, StepUpload)
}

// BackToStyle moves Preview -> Style, the retry path after a failed
// generation. The consumed slot is not refunded; generation state is
// cleared so the next attempt starts clean, and the epoch advances so a
// generation still in flight cannot land in the session afterwards.
func (m *Machine) BackToStyle(sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepPreview {
		return ErrInvalidTransition
	}
	sess.epoch++
	sess.Step = StepStyle
	sess.SelectedStyle = nil
	sess.CustomPrompt = ""
	sess.GeneratedImages = nil
	sess.GenerationFailed = false
	sess.SelectedPreview = -1
	return nil
}

// BackToPreview moves Purchase -> Preview, keeping the generated variants.
func (m *Machine) BackToPreview(sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepPurchase {
		return ErrInvalidTransition
	}
	sess.Step = StepPreview
	sess.SelectedPreview = -1
	sess.Purchase = nil
	return nil
}

func (m *Machine) back(sess *Session, from, to Step) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != from {
		return ErrInvalidTransition
	}
	sess.Step = to
	return nil
}

// SelectPreview handles Preview -> Purchase: one of the two ordered variants
// becomes the selection, the other the alternate (retained for bundled
// delivery).
func (m *Machine) SelectPreview(sess *Session, index int) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepPreview {
		return ErrInvalidTransition
	}
	if index < 0 || index >= len(sess.GeneratedImages) {
		return fmt.Errorf("%w: %d", ErrNoSuchVariant, index)
	}
	sess.SelectedPreview = index
	sess.Step = StepPurchase
	return nil
}

// ConfirmPurchase handles Purchase -> Confirmation. It only records the
// choice; no payment is executed.
func (m *Machine) ConfirmPurchase(sess *Session, selection PurchaseSelection) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepPurchase {
		return ErrInvalidTransition
	}
	if selection.Option != OptionSocial && selection.Option != OptionPrint {
		return fmt.Errorf("%w: %q", ErrUnknownOption, selection.Option)
	}
	if selection.Option == OptionSocial {
		// The upsell only applies to the physical path; the social pack
		// already bundles both variants.
		selection.IncludeAlternate = false
	}
	sess.Purchase = &selection
	sess.Step = StepConfirmation
	slog.Info("Purchase confirmed", "session_id", sess.ID, "option", selection.Option)
	return nil
}

// SocialExports renders the post and story crops for a confirmed social
// purchase.
func (m *Machine) SocialExports(sess *Session) (*export.Pack, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepConfirmation || sess.Purchase == nil || sess.Purchase.Option != OptionSocial {
		return nil, ErrInvalidTransition
	}
	if sess.SelectedPreview < 0 || sess.SelectedPreview >= len(sess.GeneratedImages) {
		return nil, ErrNoSuchVariant
	}
	return export.SocialPack(sess.GeneratedImages[sess.SelectedPreview])
}

// Reset returns the session to a fresh Upload state from any step, releasing
// the preview handle and invalidating any in-flight generation.
func (m *Machine) Reset(sess *Session) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	m.ingestor.Release(sess.Candidate)
	sess.epoch++
	sess.Step = StepUpload
	sess.Candidate = nil
	sess.Assessment = nil
	sess.SelectedStyle = nil
	sess.CustomPrompt = ""
	sess.GeneratedImages = nil
	sess.GenerationFailed = false
	sess.SelectedPreview = -1
	sess.Purchase = nil
}
