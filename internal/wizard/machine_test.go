package wizard

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pawtrait-studio/pawtrait/internal/artwork"
	"github.com/pawtrait-studio/pawtrait/internal/quota"
	"github.com/pawtrait-studio/pawtrait/internal/styles"
	"github.com/pawtrait-studio/pawtrait/internal/upload"
)

// fakeArt scripts the remote art service.
type fakeArt struct {
	mu          sync.Mutex
	suitable    bool
	feedback    string
	generateErr error
	// block, when non-nil, stalls generation until closed.
	block         chan struct{}
	promptsSeen   [][]string
	generateCalls int
}

func (f *fakeArt) AnalyzeQuality(ctx context.Context, image []byte, mimeType string) artwork.QualityAssessment {
	return artwork.QualityAssessment{IsSuitable: f.suitable, Feedback: f.feedback}
}

func (f *fakeArt) GenerateVariants(ctx context.Context, img []byte, mimeType string, prompts []string, concurrent bool) ([][]byte, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.generateCalls++
	f.promptsSeen = append(f.promptsSeen, prompts)
	f.mu.Unlock()
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	results := make([][]byte, len(prompts))
	for i := range prompts {
		results[i] = encodedPNG(800, 600)
	}
	return results, nil
}

func encodedPNG(width, height int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func newTestMachine(t *testing.T, art ArtService) *Machine {
	t.Helper()
	catalog, err := styles.Load()
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}
	clock := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	tracker := quota.NewTracker(quota.NewMemoryStore(), clock)
	return NewMachine(art, tracker, upload.NewIngestor(t.TempDir()), catalog)
}

func attachSuitablePhoto(t *testing.T, m *Machine, sess *Session) {
	t.Helper()
	if err := m.AttachPhoto(context.Background(), sess, encodedPNG(800, 600), "image/png"); err != nil {
		t.Fatalf("AttachPhoto failed: %v", err)
	}
}

func TestHappyPathThroughAllSteps(t *testing.T) {
	art := &fakeArt{suitable: true, feedback: "Great photo!"}
	m := newTestMachine(t, art)
	sess := NewSession("s1")
	ctx := context.Background()

	attachSuitablePhoto(t, m, sess)
	if sess.Assessment == nil || !sess.Assessment.IsSuitable {
		t.Fatal("Expected suitable assessment after attach")
	}

	if err := m.AdvanceToStyle(sess); err != nil {
		t.Fatalf("AdvanceToStyle failed: %v", err)
	}
	if sess.Step != StepStyle {
		t.Fatalf("Expected style step, got %v", sess.Step)
	}

	if err := m.SelectStyle(ctx, sess, "superhero"); err != nil {
		t.Fatalf("SelectStyle failed: %v", err)
	}
	if sess.Step != StepPreview {
		t.Fatalf("Expected preview step, got %v", sess.Step)
	}
	if len(sess.GeneratedImages) != styles.PromptVariants {
		t.Fatalf("Expected %d variants, got %d", styles.PromptVariants, len(sess.GeneratedImages))
	}

	if err := m.SelectPreview(sess, 1); err != nil {
		t.Fatalf("SelectPreview failed: %v", err)
	}
	if sess.Step != StepPurchase || sess.SelectedPreview != 1 {
		t.Fatalf("Expected purchase step with selection 1, got %v/%d", sess.Step, sess.SelectedPreview)
	}
	if sess.AlternateIndex() != 0 {
		t.Errorf("Expected alternate index 0, got %d", sess.AlternateIndex())
	}

	if err := m.ConfirmPurchase(sess, PurchaseSelection{Option: OptionSocial}); err != nil {
		t.Fatalf("ConfirmPurchase failed: %v", err)
	}
	if sess.Step != StepConfirmation {
		t.Fatalf("Expected confirmation step, got %v", sess.Step)
	}

	pack, err := m.SocialExports(sess)
	if err != nil {
		t.Fatalf("SocialExports failed: %v", err)
	}
	if len(pack.Post) == 0 || len(pack.Story) == 0 {
		t.Error("Expected both social artifacts")
	}
}

func TestAdvanceBlockedWithoutSuitablePhoto(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(t *testing.T, m *Machine, sess *Session)
	}{
		{
			name:    "no photo at all",
			prepare: func(t *testing.T, m *Machine, sess *Session) {},
		},
		{
			name: "unsuitable assessment",
			prepare: func(t *testing.T, m *Machine, sess *Session) {
				art := &fakeArt{suitable: false, feedback: "Too dark."}
				m.art = art
				attachSuitablePhoto(t, m, sess)
			},
		},
		{
			name: "photo too small",
			prepare: func(t *testing.T, m *Machine, sess *Session) {
				err := m.AttachPhoto(context.Background(), sess, encodedPNG(100, 100), "image/png")
				var tooSmall *upload.TooSmallError
				if !errors.As(err, &tooSmall) {
					t.Fatalf("Expected TooSmallError, got %v", err)
				}
				if sess.Candidate == nil {
					t.Fatal("Rejected photo should stay on screen")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, &fakeArt{suitable: true})
			sess := NewSession("s1")
			tt.prepare(t, m, sess)

			if err := m.AdvanceToStyle(sess); !errors.Is(err, ErrPhotoNotReady) {
				t.Errorf("Expected ErrPhotoNotReady, got %v", err)
			}
			if sess.Step != StepUpload {
				t.Errorf("Blocked advance must not change step, got %v", sess.Step)
			}
		})
	}
}

func TestQuotaGateBlocksGeneration(t *testing.T) {
	art := &fakeArt{suitable: true}
	m := newTestMachine(t, art)
	ctx := context.Background()

	// Use up the allowance.
	for i := 0; i < quota.DailyLimit; i++ {
		sess := NewSession("s")
		attachSuitablePhoto(t, m, sess)
		if err := m.AdvanceToStyle(sess); err != nil {
			t.Fatal(err)
		}
		if err := m.SelectStyle(ctx, sess, "royal"); err != nil {
			t.Fatalf("Consume %d failed: %v", i+1, err)
		}
	}

	sess := NewSession("s-final")
	attachSuitablePhoto(t, m, sess)
	if err := m.AdvanceToStyle(sess); err != nil {
		t.Fatal(err)
	}

	calls := art.generateCalls
	if err := m.SelectStyle(ctx, sess, "royal"); !errors.Is(err, ErrQuotaExhausted) {
		t.Errorf("Expected ErrQuotaExhausted, got %v", err)
	}
	if sess.Step != StepStyle {
		t.Errorf("Refused transition must not change step, got %v", sess.Step)
	}
	if art.generateCalls != calls {
		t.Error("No remote calls may be issued on quota refusal")
	}
}

func TestGenerationFailureNoRefund(t *testing.T) {
	art := &fakeArt{suitable: true, generateErr: artwork.ErrArtworkGeneration}
	m := newTestMachine(t, art)
	sess := NewSession("s1")
	ctx := context.Background()

	attachSuitablePhoto(t, m, sess)
	if err := m.AdvanceToStyle(sess); err != nil {
		t.Fatal(err)
	}

	before, _ := m.quota.Remaining()
	if err := m.SelectStyle(ctx, sess, "galactic"); err != nil {
		t.Fatalf("SelectStyle itself should not fail: %v", err)
	}

	if sess.Step != StepPreview {
		t.Errorf("Failure surfaces within Preview, got %v", sess.Step)
	}
	if !sess.GenerationFailed {
		t.Error("Expected GenerationFailed flag")
	}
	if len(sess.GeneratedImages) != 0 {
		t.Error("No partial images may be kept on failure")
	}

	// The consumed slot is not returned.
	after, _ := m.quota.Remaining()
	if after != before-1 {
		t.Errorf("Expected remaining %d after failed attempt, got %d", before-1, after)
	}

	// Recovery path: back to Style, retry consumes another slot.
	if err := m.BackToStyle(sess); err != nil {
		t.Fatalf("BackToStyle failed: %v", err)
	}
	if sess.GenerationFailed {
		t.Error("Retry path should clear the failure flag")
	}

	art.generateErr = nil
	if err := m.SelectStyle(ctx, sess, "floral"); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	final, _ := m.quota.Remaining()
	if final != before-2 {
		t.Errorf("Retry should consume a fresh slot, remaining %d want %d", final, before-2)
	}
}

func TestCustomPromptDoubling(t *testing.T) {
	art := &fakeArt{suitable: true}
	m := newTestMachine(t, art)
	sess := NewSession("s1")
	ctx := context.Background()

	attachSuitablePhoto(t, m, sess)
	if err := m.AdvanceToStyle(sess); err != nil {
		t.Fatal(err)
	}

	if err := m.SubmitCustomPrompt(ctx, sess, "   "); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("Expected ErrEmptyPrompt, got %v", err)
	}

	if err := m.SubmitCustomPrompt(ctx, sess, "as a watercolor astronaut"); err != nil {
		t.Fatalf("SubmitCustomPrompt failed: %v", err)
	}

	if len(art.promptsSeen) != 1 {
		t.Fatalf("Expected one dispatch, got %d", len(art.promptsSeen))
	}
	prompts := art.promptsSeen[0]
	if len(prompts) != styles.PromptVariants {
		t.Fatalf("Custom text must be doubled into %d prompts, got %d", styles.PromptVariants, len(prompts))
	}
	if prompts[0] == prompts[1] {
		t.Error("Derived prompts must be distinct interpretations")
	}
	if sess.CustomPrompt != "as a watercolor astronaut" {
		t.Errorf("CustomPrompt = %q", sess.CustomPrompt)
	}
	if sess.SelectedStyle != nil {
		t.Error("A custom prompt clears the catalog selection")
	}
}

func TestReplacePhotoWithSameBytesKeepsPreviewAlive(t *testing.T) {
	art := &fakeArt{suitable: true}
	m := newTestMachine(t, art)
	sess := NewSession("s1")
	ctx := context.Background()

	photo := encodedPNG(800, 600)
	if err := m.AttachPhoto(ctx, sess, photo, "image/png"); err != nil {
		t.Fatalf("First attach failed: %v", err)
	}
	firstPath := sess.Candidate.PreviewPath

	// Re-uploading the exact same photo replaces the candidate; releasing
	// the old handle must not take the new preview file with it.
	if err := m.AttachPhoto(ctx, sess, photo, "image/png"); err != nil {
		t.Fatalf("Second attach failed: %v", err)
	}
	if sess.Candidate.PreviewPath == firstPath {
		t.Fatal("Replacement candidate must own its own preview file")
	}
	if _, err := os.Stat(sess.Candidate.PreviewPath); err != nil {
		t.Fatalf("Preview handle is dead after replacement with the same photo: %v", err)
	}
	if _, err := os.Stat(firstPath); !os.IsNotExist(err) {
		t.Error("Replaced candidate's preview file should be released")
	}
}

func TestInvalidTransitionsAreNoOps(t *testing.T) {
	art := &fakeArt{suitable: true}
	m := newTestMachine(t, art)
	ctx := context.Background()

	tests := []struct {
		name string
		act  func(sess *Session) error
	}{
		{name: "select style from upload", act: func(s *Session) error { return m.SelectStyle(ctx, s, "royal") }},
		{name: "select preview from upload", act: func(s *Session) error { return m.SelectPreview(s, 0) }},
		{name: "confirm from upload", act: func(s *Session) error {
			return m.ConfirmPurchase(s, PurchaseSelection{Option: OptionSocial})
		}},
		{name: "back to style from upload", act: func(s *Session) error { return m.BackToStyle(s) }},
		{name: "back to preview from upload", act: func(s *Session) error { return m.BackToPreview(s) }},
		{name: "exports before confirmation", act: func(s *Session) error {
			_, err := m.SocialExports(s)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := NewSession("s1")
			if err := tt.act(sess); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Expected ErrInvalidTransition, got %v", err)
			}
			if sess.Step != StepUpload {
				t.Errorf("Invalid transition must not change step, got %v", sess.Step)
			}
		})
	}
}

func TestPurchaseOptions(t *testing.T) {
	art := &fakeArt{suitable: true}
	m := newTestMachine(t, art)
	ctx := context.Background()

	toPurchase := func(t *testing.T) *Session {
		sess := NewSession("s1")
		attachSuitablePhoto(t, m, sess)
		if err := m.AdvanceToStyle(sess); err != nil {
			t.Fatal(err)
		}
		if err := m.SelectStyle(ctx, sess, "street"); err != nil {
			t.Fatal(err)
		}
		if err := m.SelectPreview(sess, 0); err != nil {
			t.Fatal(err)
		}
		return sess
	}

	t.Run("print with upsell", func(t *testing.T) {
		sess := toPurchase(t)
		if err := m.ConfirmPurchase(sess, PurchaseSelection{Option: OptionPrint, IncludeAlternate: true}); err != nil {
			t.Fatal(err)
		}
		if !sess.Purchase.IncludeAlternate {
			t.Error("Print upsell should be recorded")
		}
	})

	t.Run("social ignores upsell flag", func(t *testing.T) {
		sess := toPurchase(t)
		if err := m.ConfirmPurchase(sess, PurchaseSelection{Option: OptionSocial, IncludeAlternate: true}); err != nil {
			t.Fatal(err)
		}
		if sess.Purchase.IncludeAlternate {
			t.Error("Social delivery already bundles both variants")
		}
	})

	t.Run("unknown option rejected", func(t *testing.T) {
		sess := toPurchase(t)
		if err := m.ConfirmPurchase(sess, PurchaseSelection{Option: "barter"}); err == nil {
			t.Error("Expected rejection of unknown option")
		}
		if sess.Step != StepPurchase {
			t.Error("Rejected confirm must not change step")
		}
	})
}

func TestResetYieldsFreshSession(t *testing.T) {
	art := &fakeArt{suitable: true}
	m := newTestMachine(t, art)
	ctx := context.Background()

	steps := []struct {
		name    string
		advance func(t *testing.T, sess *Session)
	}{
		{name: "from upload", advance: func(t *testing.T, sess *Session) {}},
		{name: "from style", advance: func(t *testing.T, sess *Session) {
			attachSuitablePhoto(t, m, sess)
			if err := m.AdvanceToStyle(sess); err != nil {
				t.Fatal(err)
			}
		}},
		{name: "from confirmation", advance: func(t *testing.T, sess *Session) {
			attachSuitablePhoto(t, m, sess)
			if err := m.AdvanceToStyle(sess); err != nil {
				t.Fatal(err)
			}
			if err := m.SelectStyle(ctx, sess, "gold"); err != nil {
				t.Fatal(err)
			}
			if err := m.SelectPreview(sess, 0); err != nil {
				t.Fatal(err)
			}
			if err := m.ConfirmPurchase(sess, PurchaseSelection{Option: OptionPrint}); err != nil {
				t.Fatal(err)
			}
		}},
	}

	for _, tt := range steps {
		t.Run(tt.name, func(t *testing.T) {
			sess := NewSession("s1")
			tt.advance(t, sess)
			m.Reset(sess)

			if sess.Step != StepUpload {
				t.Errorf("Step = %v, want upload", sess.Step)
			}
			if sess.Candidate != nil || sess.Assessment != nil || sess.SelectedStyle != nil ||
				sess.CustomPrompt != "" || sess.GeneratedImages != nil || sess.GenerationFailed ||
				sess.SelectedPreview != -1 || sess.Purchase != nil {
				t.Error("Reset must clear every per-session field")
			}
		})
	}
}

func TestStaleGenerationResultIsDiscarded(t *testing.T) {
	art := &fakeArt{suitable: true, block: make(chan struct{})}
	m := newTestMachine(t, art)
	sess := NewSession("s1")
	ctx := context.Background()

	attachSuitablePhoto(t, m, sess)
	if err := m.AdvanceToStyle(sess); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.SelectStyle(ctx, sess, "fantasy")
	}()

	// Wait for the generation call to be in flight, then reset underneath it.
	deadline := time.After(2 * time.Second)
	for {
		sess.mu.Lock()
		inPreview := sess.Step == StepPreview
		sess.mu.Unlock()
		if inPreview {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Generation never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	m.Reset(sess)
	close(art.block)

	if err := <-done; err != nil {
		t.Fatalf("SelectStyle returned error: %v", err)
	}

	if len(sess.GeneratedImages) != 0 {
		t.Error("A result from before the reset must not land in the fresh session")
	}
	if sess.Step != StepUpload {
		t.Errorf("Session should remain freshly reset, got step %v", sess.Step)
	}
}

func TestBackToStyleDiscardsInFlightGeneration(t *testing.T) {
	art := &fakeArt{suitable: true, block: make(chan struct{})}
	m := newTestMachine(t, art)
	sess := NewSession("s1")
	ctx := context.Background()

	attachSuitablePhoto(t, m, sess)
	if err := m.AdvanceToStyle(sess); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.SelectStyle(ctx, sess, "mosaic")
	}()

	deadline := time.After(2 * time.Second)
	for {
		sess.mu.Lock()
		inPreview := sess.Step == StepPreview
		sess.mu.Unlock()
		if inPreview {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Generation never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Navigate away while generation is still running.
	if err := m.BackToStyle(sess); err != nil {
		t.Fatalf("BackToStyle failed: %v", err)
	}
	close(art.block)

	if err := <-done; err != nil {
		t.Fatalf("SelectStyle returned error: %v", err)
	}

	if len(sess.GeneratedImages) != 0 {
		t.Error("A result arriving after back-navigation must not land in the session")
	}
	if sess.Step != StepStyle {
		t.Errorf("Session should remain at style, got step %v", sess.Step)
	}
}
