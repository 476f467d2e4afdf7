package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagelink/modgate/internal/db"
	apperrors "github.com/stagelink/modgate/internal/errors"
)

type SubmissionStatus string

const (
	StatusSent         SubmissionStatus = "sent"
	StatusBlocked      SubmissionStatus = "blocked"
	StatusSuspended    SubmissionStatus = "suspended"
	StatusServiceError SubmissionStatus = "service_error"
)

// SubmissionResult is the single outcome type of the pipeline. Which fields
// are meaningful depends on Status: Sent carries Message, Blocked carries
// ViolationType/Explanation/StrikeCountAfter, Suspended carries
// SuspensionUntil/Explanation, ServiceError carries Reason only.
type SubmissionResult struct {
	Status           SubmissionStatus
	Message          *db.Message
	ViolationType    ViolationType
	Explanation      string
	StrikeCountAfter int
	SuspensionUntil  *time.Time
	Reason           string
}

type conversationStore interface {
	GetConversation(ctx context.Context, id string) (*db.Conversation, error)
	CreateMessage(ctx context.Context, message *db.Message) error
}

// Publisher is the seam to the external fan-out collaborator. Delivery of
// sent messages to conversation participants is not the pipeline's job.
type Publisher interface {
	PublishMessageSent(message *db.Message)
}

// Pipeline is the single entry point for outbound messages. Its terminal
// states per submission: suspended short-circuit, service error, blocked, or
// persisted and published.
type Pipeline struct {
	gate      *Gate
	ledger    StrikeLedger
	store     conversationStore
	publisher Publisher
	policy    *Policy
	now       func() time.Time
	logger    *log.Entry
}

func NewPipeline(gate *Gate, ledger StrikeLedger, store conversationStore, publisher Publisher, policy *Policy) *Pipeline {
	return &Pipeline{
		gate:      gate,
		ledger:    ledger,
		store:     store,
		publisher: publisher,
		policy:    policy,
		now:       time.Now,
		logger:    log.WithField("service", "submission_pipeline"),
	}
}

const serviceErrorReason = "The message could not be processed right now. Please try again in a moment."

// Submit runs one message through the gate. It returns an error only for
// caller mistakes (bad input, unknown conversation, non-participant);
// downstream failures surface as a ServiceError result and never as a sent
// message.
func (p *Pipeline) Submit(ctx context.Context, senderID, conversationID, content string) (*SubmissionResult, error) {
	entry := p.logger.WithField("method", "Submit").
		WithField("user_id", senderID).
		WithField("conversation_id", conversationID)

	if senderID == "" {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "missing sender")
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidInput, "empty message")
	}

	conversation, err := p.store.GetConversation(ctx, conversationID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		entry.WithError(err).Error("failed to load conversation")
		return &SubmissionResult{Status: StatusServiceError, Reason: serviceErrorReason}, nil
	}
	if !conversation.HasParticipant(senderID) {
		return nil, errors.Wrap(apperrors.ErrForbidden, "sender is not a conversation participant")
	}

	// Suspension pre-check. A suspended user never reaches the classifier,
	// clean content included.
	state, err := p.ledger.CheckSuspension(ctx, senderID)
	if err != nil {
		entry.WithError(err).Error("failed to check suspension")
		return &SubmissionResult{Status: StatusServiceError, Reason: serviceErrorReason}, nil
	}
	if state.IsSuspended && state.SuspensionUntil != nil {
		return &SubmissionResult{
			Status:          StatusSuspended,
			SuspensionUntil: state.SuspensionUntil,
			Explanation:     SuspendedExplanation(*state.SuspensionUntil),
		}, nil
	}

	decision, err := p.gate.Evaluate(ctx, senderID, content)
	if err != nil {
		entry.WithError(err).Error("gate evaluation failed")
		return &SubmissionResult{Status: StatusServiceError, Reason: serviceErrorReason}, nil
	}

	if !decision.Allowed {
		// Persist the blocked row for audit and appeals. The ledger is
		// already updated, a failed audit write must not resurrect the
		// message, so it only logs.
		blocked := &db.Message{
			ID:             uuid.New(),
			ConversationID: conversationID,
			SenderID:       senderID,
			Content:        content,
			IsFlagged:      true,
			IsBlocked:      true,
			CreatedAt:      p.now(),
		}
		if storeErr := p.store.CreateMessage(ctx, blocked); storeErr != nil {
			entry.WithError(storeErr).Error("failed to persist blocked message")
		}

		return &SubmissionResult{
			Status:           StatusBlocked,
			Message:          blocked,
			ViolationType:    decision.Verdict.ViolationType,
			Explanation:      BlockedExplanation(p.policy, decision.Verdict, decision.StrikeCountAfter),
			StrikeCountAfter: decision.StrikeCountAfter,
			SuspensionUntil:  decision.SuspensionUntil,
		}, nil
	}

	message := &db.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		IsFlagged:      decision.Verdict.IsViolation,
		CreatedAt:      p.now(),
	}
	if err := p.store.CreateMessage(ctx, message); err != nil {
		entry.WithError(err).Error("failed to persist message")
		return &SubmissionResult{Status: StatusServiceError, Reason: serviceErrorReason}, nil
	}

	if p.publisher != nil {
		p.publisher.PublishMessageSent(message)
	}
	return &SubmissionResult{Status: StatusSent, Message: message}, nil
}
