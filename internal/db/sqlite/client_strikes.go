package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/stagelink/modgate/internal/db"
	apperrors "github.com/stagelink/modgate/internal/errors"
)

// IncrementStrike creates or bumps the user's strike row in a single upsert
// statement, so concurrent violations for the same user cannot lose updates.
func (c *sqliteClient) IncrementStrike(ctx context.Context, userID string, at time.Time) (*db.StrikeRecord, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO strike_records (user_id, strike_count, last_strike_at)
		VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			strike_count = strike_count + 1,
			last_strike_at = excluded.last_strike_at
		RETURNING user_id, strike_count, last_strike_at, is_suspended, suspension_until
	`
	var record db.StrikeRecord
	if err := c.db.GetContext(ctx, &record, query, userID, at); err != nil {
		return nil, errors.Wrap(err, "increment strike")
	}
	return &record, nil
}

func (c *sqliteClient) ApplySuspension(ctx context.Context, userID string, until time.Time) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `UPDATE strike_records SET is_suspended = 1, suspension_until = ? WHERE user_id = ?`
	result, err := c.db.ExecContext(ctx, query, until, userID)
	if err != nil {
		return errors.Wrap(err, "apply suspension")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "apply suspension rows affected")
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ClearSuspension lifts the suspension window but preserves the strike count.
func (c *sqliteClient) ClearSuspension(ctx context.Context, userID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `UPDATE strike_records SET is_suspended = 0, suspension_until = NULL WHERE user_id = ?`
	result, err := c.db.ExecContext(ctx, query, userID)
	if err != nil {
		return errors.Wrap(err, "clear suspension")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "clear suspension rows affected")
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (c *sqliteClient) GetStrikeRecord(ctx context.Context, userID string) (*db.StrikeRecord, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var record db.StrikeRecord
	err := c.db.GetContext(ctx, &record, `SELECT * FROM strike_records WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get strike record")
	}
	return &record, nil
}
