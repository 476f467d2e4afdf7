package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stagelink/modgate/internal/config"
)

func testModerationConfig() config.Moderation {
	return config.Moderation{
		StrikeThreshold:     3,
		SuspensionWindow:    7 * 24 * time.Hour,
		ConfidenceThreshold: 0.6,
	}
}

func TestRecordViolationEscalatesAtThreshold(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore()
	ledger := NewLedger(store, testModerationConfig())

	previousCount := 0
	for strike := 1; strike <= 4; strike++ {
		state, err := ledger.RecordViolation(ctx, "user-1")
		if err != nil {
			t.Fatalf("record violation %d: %v", strike, err)
		}
		if state.StrikeCount != strike {
			t.Fatalf("expected strike count %d, got %d", strike, state.StrikeCount)
		}
		if state.StrikeCount < previousCount {
			t.Fatalf("strike count decreased: %d -> %d", previousCount, state.StrikeCount)
		}
		previousCount = state.StrikeCount

		wantSuspended := strike >= 3
		if state.IsSuspended != wantSuspended {
			t.Fatalf("strike %d: expected suspended=%v, got %v", strike, wantSuspended, state.IsSuspended)
		}
		if wantSuspended {
			if state.SuspensionUntil == nil {
				t.Fatalf("strike %d: suspended without a window", strike)
			}
			remaining := time.Until(*state.SuspensionUntil)
			if remaining < 6*24*time.Hour || remaining > 7*24*time.Hour {
				t.Fatalf("strike %d: unexpected window end %v", strike, state.SuspensionUntil)
			}
		}
	}
}

func TestRecordViolationExtendsWindowOnRepeatStrike(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore()
	ledger := NewLedger(store, testModerationConfig())

	var thirdUntil time.Time
	for strike := 1; strike <= 3; strike++ {
		state, err := ledger.RecordViolation(ctx, "user-1")
		if err != nil {
			t.Fatalf("record violation %d: %v", strike, err)
		}
		if strike == 3 {
			thirdUntil = *state.SuspensionUntil
		}
	}

	time.Sleep(10 * time.Millisecond)
	state, err := ledger.RecordViolation(ctx, "user-1")
	if err != nil {
		t.Fatalf("record fourth violation: %v", err)
	}
	if !state.SuspensionUntil.After(thirdUntil) {
		t.Fatalf("expected fourth strike to extend the window: %v -> %v", thirdUntil, state.SuspensionUntil)
	}
}

func TestCheckSuspensionForUnknownUser(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(newMemStore(), testModerationConfig())

	state, err := ledger.CheckSuspension(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("check suspension: %v", err)
	}
	if state.IsSuspended || state.StrikeCount != 0 {
		t.Fatalf("expected clean state, got %#v", state)
	}
}

func TestCheckSuspensionIgnoresElapsedWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore()
	ledger := NewLedger(store, testModerationConfig())

	if _, err := store.IncrementStrike(ctx, "user-1", time.Now()); err != nil {
		t.Fatalf("seed strike: %v", err)
	}
	if err := store.ApplySuspension(ctx, "user-1", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("seed elapsed suspension: %v", err)
	}

	state, err := ledger.CheckSuspension(ctx, "user-1")
	if err != nil {
		t.Fatalf("check suspension: %v", err)
	}
	if state.IsSuspended {
		t.Fatalf("elapsed window should read as not suspended: %#v", state)
	}
	if state.StrikeCount != 1 {
		t.Fatalf("expected preserved strike count, got %d", state.StrikeCount)
	}
}

func TestClearSuspensionPreservesStrikeCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemStore()
	ledger := NewLedger(store, testModerationConfig())

	for strike := 0; strike < 3; strike++ {
		if _, err := ledger.RecordViolation(ctx, "user-1"); err != nil {
			t.Fatalf("record violation: %v", err)
		}
	}
	if err := ledger.ClearSuspension(ctx, "user-1"); err != nil {
		t.Fatalf("clear suspension: %v", err)
	}

	state, err := ledger.CheckSuspension(ctx, "user-1")
	if err != nil {
		t.Fatalf("check suspension: %v", err)
	}
	if state.IsSuspended {
		t.Fatalf("expected suspension cleared, got %#v", state)
	}
	if state.StrikeCount != 3 {
		t.Fatalf("clear must preserve the strike count, got %d", state.StrikeCount)
	}
}
