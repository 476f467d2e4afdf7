package moderation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/stagelink/modgate/internal/errors"
)

type pipelineFixture struct {
	store      *memStore
	classifier *fakeClassifier
	publisher  *capturedPublisher
	pipeline   *Pipeline
}

func newPipelineFixture(t *testing.T, classifier *fakeClassifier) *pipelineFixture {
	t.Helper()
	store := newMemStore()
	store.addConversation("conv-1", "artist-1", "client-1")
	publisher := &capturedPublisher{}
	ledger := NewLedger(store, testModerationConfig())
	gate := NewGate(classifier, ledger, store, 0.6)
	pipeline := NewPipeline(gate, ledger, store, publisher, testPolicy(t))
	return &pipelineFixture{store: store, classifier: classifier, publisher: publisher, pipeline: pipeline}
}

func phoneVerdict(confidence float64) *Verdict {
	return &Verdict{IsViolation: true, ViolationType: ViolationPhone, Confidence: confidence, FlaggedContent: "555-1234"}
}

func TestSubmitCleanMessage(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t, &fakeClassifier{verdicts: []*Verdict{{ViolationType: ViolationNone, Confidence: 0.95}}})

	result, err := fx.pipeline.Submit(context.Background(), "client-1", "conv-1", "Looking forward to the event!")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Status != StatusSent {
		t.Fatalf("expected sent, got %#v", result)
	}
	if result.Message == nil || result.Message.IsBlocked || result.Message.IsFlagged {
		t.Fatalf("unexpected message row: %#v", result.Message)
	}
	if fx.store.messageCount() != 1 {
		t.Fatalf("expected one persisted message, got %d", fx.store.messageCount())
	}
	if fx.store.flagCount() != 0 {
		t.Fatalf("clean send must not write flags")
	}
	if fx.publisher.count() != 1 {
		t.Fatalf("expected one published fan-out event, got %d", fx.publisher.count())
	}
}

func TestSubmitEscalationSequence(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t, &fakeClassifier{verdicts: []*Verdict{phoneVerdict(0.9)}})
	ctx := context.Background()

	// First violation: blocked with a first warning.
	result, err := fx.pipeline.Submit(ctx, "client-1", "conv-1", "Call me at 555-1234")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if result.Status != StatusBlocked || result.StrikeCountAfter != 1 {
		t.Fatalf("unexpected first result: %#v", result)
	}
	if result.ViolationType != ViolationPhone {
		t.Fatalf("unexpected violation type: %v", result.ViolationType)
	}
	if !strings.Contains(result.Explanation, "first warning") {
		t.Fatalf("expected first warning, got %q", result.Explanation)
	}

	// Second violation: one-more-and-out warning.
	result, err = fx.pipeline.Submit(ctx, "client-1", "conv-1", "Seriously, call 555-1234")
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if result.StrikeCountAfter != 2 {
		t.Fatalf("expected strike count 2, got %d", result.StrikeCountAfter)
	}
	if !strings.Contains(result.Explanation, "second warning") || !strings.Contains(result.Explanation, "one more") {
		t.Fatalf("expected second warning, got %q", result.Explanation)
	}

	// Third violation: suspended with a 7-day window.
	result, err = fx.pipeline.Submit(ctx, "client-1", "conv-1", "555-1234, last time")
	if err != nil {
		t.Fatalf("third submit: %v", err)
	}
	if result.StrikeCountAfter != 3 {
		t.Fatalf("expected strike count 3, got %d", result.StrikeCountAfter)
	}
	if !strings.Contains(result.Explanation, "suspended") {
		t.Fatalf("expected suspension notice, got %q", result.Explanation)
	}
	if result.SuspensionUntil == nil {
		t.Fatalf("expected suspension window on third strike")
	}
	remaining := time.Until(*result.SuspensionUntil)
	if remaining < 6*24*time.Hour || remaining > 7*24*time.Hour {
		t.Fatalf("unexpected window end: %v", result.SuspensionUntil)
	}

	// Every blocked submission persisted an audit row, none reached fan-out.
	if fx.store.messageCount() != 3 {
		t.Fatalf("expected three persisted blocked rows, got %d", fx.store.messageCount())
	}
	for _, message := range fx.store.messages {
		if !message.IsBlocked || !message.IsFlagged {
			t.Fatalf("blocked row not marked: %#v", message)
		}
	}
	if fx.store.flagCount() != 3 {
		t.Fatalf("expected three flag rows, got %d", fx.store.flagCount())
	}
	if fx.publisher.count() != 0 {
		t.Fatalf("blocked messages must not be published")
	}

	// Suspended user short-circuits: no classifier call, clean or not.
	callsBefore := fx.classifier.callCount()
	result, err = fx.pipeline.Submit(ctx, "client-1", "conv-1", "Totally clean message")
	if err != nil {
		t.Fatalf("suspended submit: %v", err)
	}
	if result.Status != StatusSuspended {
		t.Fatalf("expected suspended, got %#v", result)
	}
	if !strings.Contains(result.Explanation, "suspended until") {
		t.Fatalf("expected suspension explanation, got %q", result.Explanation)
	}
	if fx.classifier.callCount() != callsBefore {
		t.Fatalf("suspended user must not reach the classifier")
	}
}

func TestSubmitFailsClosedOnClassifierOutage(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t, &fakeClassifier{err: apperrors.ErrClassifierUnavailable})

	result, err := fx.pipeline.Submit(context.Background(), "client-1", "conv-1", "hello")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Status != StatusServiceError {
		t.Fatalf("classifier outage must surface as service error, got %#v", result)
	}
	if fx.store.messageCount() != 0 {
		t.Fatalf("no message may be persisted on classifier outage")
	}
	if fx.publisher.count() != 0 {
		t.Fatalf("no fan-out on classifier outage")
	}
}

func TestSubmitServiceErrorOnPersistenceFailure(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t, &fakeClassifier{verdicts: []*Verdict{{ViolationType: ViolationNone, Confidence: 0.95}}})
	fx.store.messageErr = errors.New("disk full")

	result, err := fx.pipeline.Submit(context.Background(), "client-1", "conv-1", "hello")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Status != StatusServiceError {
		t.Fatalf("persistence failure must surface as service error, got %#v", result)
	}
	if fx.publisher.count() != 0 {
		t.Fatalf("unpersisted message must not be published")
	}
}

func TestSubmitRejectsOutsiders(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t, &fakeClassifier{})

	if _, err := fx.pipeline.Submit(context.Background(), "stranger", "conv-1", "hi"); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := fx.pipeline.Submit(context.Background(), "client-1", "missing-conv", "hi"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := fx.pipeline.Submit(context.Background(), "client-1", "conv-1", "   "); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := fx.pipeline.Submit(context.Background(), "", "conv-1", "hi"); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if fx.classifier.callCount() != 0 {
		t.Fatalf("rejected submissions must not reach the classifier")
	}
}

func TestSubmitMarksLowConfidenceSuspicionFlagged(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t, &fakeClassifier{verdicts: []*Verdict{phoneVerdict(0.5)}})

	result, err := fx.pipeline.Submit(context.Background(), "client-1", "conv-1", "my number is great")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Status != StatusSent {
		t.Fatalf("low-confidence suspicion must send, got %#v", result)
	}
	if !result.Message.IsFlagged {
		t.Fatalf("low-confidence suspicion should be flagged for review")
	}
	if result.Message.IsBlocked {
		t.Fatalf("flagged-for-review message must not be blocked")
	}
	if fx.store.flagCount() != 0 {
		t.Fatalf("low-confidence suspicion must not write audit flags")
	}
}
