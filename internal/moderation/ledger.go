package moderation

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagelink/modgate/internal/config"
	"github.com/stagelink/modgate/internal/db"
	apperrors "github.com/stagelink/modgate/internal/errors"
	"github.com/stagelink/modgate/internal/observability"
)

// StrikeState is the ledger's answer about one user at one instant.
type StrikeState struct {
	StrikeCount     int
	IsSuspended     bool
	SuspensionUntil *time.Time
}

type StrikeLedger interface {
	RecordViolation(ctx context.Context, userID string) (*StrikeState, error)
	CheckSuspension(ctx context.Context, userID string) (*StrikeState, error)
	ClearSuspension(ctx context.Context, userID string) error
}

type strikeStore interface {
	IncrementStrike(ctx context.Context, userID string, at time.Time) (*db.StrikeRecord, error)
	ApplySuspension(ctx context.Context, userID string, until time.Time) error
	ClearSuspension(ctx context.Context, userID string) error
	GetStrikeRecord(ctx context.Context, userID string) (*db.StrikeRecord, error)
}

type ledger struct {
	store     strikeStore
	threshold int
	window    time.Duration
	now       func() time.Time
	logger    *log.Entry
}

func NewLedger(store strikeStore, cfg config.Moderation) StrikeLedger {
	return &ledger{
		store:     store,
		threshold: cfg.StrikeThreshold,
		window:    cfg.SuspensionWindow,
		now:       time.Now,
		logger:    log.WithField("service", "strike_ledger"),
	}
}

// RecordViolation increments the user's strike count and applies a fresh
// suspension window every time the incremented count meets the threshold.
// A strike landing while a window is already open therefore extends it.
func (l *ledger) RecordViolation(ctx context.Context, userID string) (*StrikeState, error) {
	record, err := l.store.IncrementStrike(ctx, userID, l.now())
	if err != nil {
		return nil, errors.Wrap(err, "record violation")
	}

	state := &StrikeState{
		StrikeCount:     record.StrikeCount,
		IsSuspended:     record.SuspendedAt(l.now()),
		SuspensionUntil: record.SuspensionUntil,
	}
	if record.StrikeCount < l.threshold {
		return state, nil
	}

	until := l.now().Add(l.window)
	if err := l.store.ApplySuspension(ctx, userID, until); err != nil {
		return nil, errors.Wrap(err, "apply suspension")
	}
	l.logger.WithField("user_id", userID).WithField("strike_count", record.StrikeCount).Warn("user suspended")
	observability.RecordSuspension()

	state.IsSuspended = true
	state.SuspensionUntil = &until
	return state, nil
}

// CheckSuspension is the read-only pre-check. A record whose window has
// already elapsed reads as not suspended, the stale row is left for the next
// RecordViolation to overwrite.
func (l *ledger) CheckSuspension(ctx context.Context, userID string) (*StrikeState, error) {
	record, err := l.store.GetStrikeRecord(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &StrikeState{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "check suspension")
	}
	return &StrikeState{
		StrikeCount:     record.StrikeCount,
		IsSuspended:     record.SuspendedAt(l.now()),
		SuspensionUntil: record.SuspensionUntil,
	}, nil
}

// ClearSuspension lifts the window without resetting the strike count. This
// is an administrative operation, the gate never calls it.
func (l *ledger) ClearSuspension(ctx context.Context, userID string) error {
	if err := l.store.ClearSuspension(ctx, userID); err != nil {
		return errors.Wrap(err, "clear suspension")
	}
	l.logger.WithField("user_id", userID).Info("suspension cleared")
	return nil
}
