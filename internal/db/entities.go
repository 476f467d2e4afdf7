package db

import "time"

type (
	// StrikeRecord is the per-user trust state. One row per user, created
	// lazily on the first recorded violation.
	StrikeRecord struct {
		UserID          string     `db:"user_id"`
		StrikeCount     int        `db:"strike_count"`
		LastStrikeAt    *time.Time `db:"last_strike_at"`
		IsSuspended     bool       `db:"is_suspended"`
		SuspensionUntil *time.Time `db:"suspension_until"`
	}

	// MessageFlag is an append-only audit record of a detected violation.
	MessageFlag struct {
		ID             string    `db:"id"`
		UserID         string    `db:"user_id"`
		ViolationType  string    `db:"violation_type"`
		FlaggedContent string    `db:"flagged_content"`
		AIConfidence   float64   `db:"ai_confidence"`
		CreatedAt      time.Time `db:"created_at"`
	}

	Message struct {
		ID             string    `db:"id"`
		ConversationID string    `db:"conversation_id"`
		SenderID       string    `db:"sender_id"`
		Content        string    `db:"content"`
		IsFlagged      bool      `db:"is_flagged"`
		IsBlocked      bool      `db:"is_blocked"`
		CreatedAt      time.Time `db:"created_at"`
	}

	Conversation struct {
		ID        string    `db:"id"`
		ArtistID  string    `db:"artist_id"`
		ClientID  string    `db:"client_id"`
		CreatedAt time.Time `db:"created_at"`
	}
)

// SuspendedAt reports whether the record carries a suspension window that is
// still open at the given instant.
func (r *StrikeRecord) SuspendedAt(now time.Time) bool {
	if r == nil || !r.IsSuspended || r.SuspensionUntil == nil {
		return false
	}
	return r.SuspensionUntil.After(now)
}

// HasParticipant reports whether the given user is one of the two parties.
func (c *Conversation) HasParticipant(userID string) bool {
	if c == nil {
		return false
	}
	return c.ArtistID == userID || c.ClientID == userID
}
