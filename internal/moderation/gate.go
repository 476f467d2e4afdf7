package moderation

import (
	"context"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagelink/modgate/internal/db"
	"github.com/stagelink/modgate/internal/observability"
)

// GateDecision is the outcome of evaluating one message for one user.
type GateDecision struct {
	Allowed          bool
	Verdict          *Verdict
	StrikeCountAfter int
	IsSuspended      bool
	SuspensionUntil  *time.Time
}

type flagStore interface {
	CreateMessageFlag(ctx context.Context, flag *db.MessageFlag) error
}

// Gate orchestrates classification and ledger escalation. It is the only
// component that writes MessageFlag rows or records strikes.
type Gate struct {
	classifier          Classifier
	ledger              StrikeLedger
	flags               flagStore
	confidenceThreshold float64
	now                 func() time.Time
	logger              *log.Entry
}

func NewGate(classifier Classifier, ledger StrikeLedger, flags flagStore, confidenceThreshold float64) *Gate {
	return &Gate{
		classifier:          classifier,
		ledger:              ledger,
		flags:               flags,
		confidenceThreshold: confidenceThreshold,
		now:                 time.Now,
		logger:              log.WithField("service", "moderation_gate"),
	}
}

// Evaluate classifies the message and, for actionable violations, persists
// the audit flag and records the strike. Classifier failures propagate, the
// gate never converts uncertainty into an allow.
func (g *Gate) Evaluate(ctx context.Context, userID, messageText string) (*GateDecision, error) {
	entry := g.logger.WithField("method", "Evaluate").WithField("user_id", userID)

	verdict, err := g.classifier.Classify(ctx, messageText)
	if err != nil {
		return nil, err
	}
	observability.RecordVerdict(string(verdict.ViolationType), verdict.IsViolation)

	// Low-confidence suspicions pass through. The verdict still travels with
	// the decision so the caller can mark the message flagged-for-review.
	if !verdict.IsViolation || verdict.Confidence <= g.confidenceThreshold {
		return &GateDecision{Allowed: true, Verdict: verdict}, nil
	}

	flag := &db.MessageFlag{
		ID:             uuid.New(),
		UserID:         userID,
		ViolationType:  string(verdict.ViolationType),
		FlaggedContent: verdict.FlaggedContent,
		AIConfidence:   verdict.Confidence,
		CreatedAt:      g.now(),
	}
	if err := g.flags.CreateMessageFlag(ctx, flag); err != nil {
		entry.WithError(err).Error("failed to persist message flag")
		return nil, errors.Wrap(err, "persist message flag")
	}

	state, err := g.ledger.RecordViolation(ctx, userID)
	if err != nil {
		entry.WithError(err).Error("failed to record violation")
		return nil, errors.Wrap(err, "record violation")
	}
	entry.WithField("violation_type", verdict.ViolationType).
		WithField("strike_count", state.StrikeCount).
		Info("message blocked")
	observability.RecordBlocked(string(verdict.ViolationType))

	return &GateDecision{
		Allowed:          false,
		Verdict:          verdict,
		StrikeCountAfter: state.StrikeCount,
		IsSuspended:      state.IsSuspended,
		SuspensionUntil:  state.SuspensionUntil,
	}, nil
}
