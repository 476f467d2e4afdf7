package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/stagelink/modgate/internal/db"
	apperrors "github.com/stagelink/modgate/internal/errors"
)

func (c *sqliteClient) CreateConversation(ctx context.Context, conversation *db.Conversation) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO conversations (id, artist_id, client_id, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := c.db.ExecContext(ctx, query,
		conversation.ID,
		conversation.ArtistID,
		conversation.ClientID,
		conversation.CreatedAt,
	)
	return errors.Wrap(err, "create conversation")
}

func (c *sqliteClient) GetConversation(ctx context.Context, id string) (*db.Conversation, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var conversation db.Conversation
	err := c.db.GetContext(ctx, &conversation, `SELECT * FROM conversations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get conversation")
	}
	return &conversation, nil
}

func (c *sqliteClient) CreateMessage(ctx context.Context, message *db.Message) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, is_flagged, is_blocked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := c.db.ExecContext(ctx, query,
		message.ID,
		message.ConversationID,
		message.SenderID,
		message.Content,
		message.IsFlagged,
		message.IsBlocked,
		message.CreatedAt,
	)
	return errors.Wrap(err, "create message")
}

// GetConversationMessages serves the user-facing read path. Blocked rows are
// kept for audit but never leave this query.
func (c *sqliteClient) GetConversationMessages(ctx context.Context, conversationID string, limit, offset int) ([]*db.Message, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	messages := []*db.Message{}
	query := `
		SELECT * FROM messages
		WHERE conversation_id = ? AND is_blocked = 0
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?
	`
	if err := c.db.SelectContext(ctx, &messages, query, conversationID, limit, offset); err != nil {
		return nil, errors.Wrap(err, "get conversation messages")
	}
	return messages, nil
}

func (c *sqliteClient) CreateMessageFlag(ctx context.Context, flag *db.MessageFlag) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO message_flags (id, user_id, violation_type, flagged_content, ai_confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := c.db.ExecContext(ctx, query,
		flag.ID,
		flag.UserID,
		flag.ViolationType,
		flag.FlaggedContent,
		flag.AIConfidence,
		flag.CreatedAt,
	)
	return errors.Wrap(err, "create message flag")
}

func (c *sqliteClient) ListMessageFlags(ctx context.Context, limit, offset int) ([]*db.MessageFlag, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	flags := []*db.MessageFlag{}
	query := `
		SELECT * FROM message_flags
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	if err := c.db.SelectContext(ctx, &flags, query, limit, offset); err != nil {
		return nil, errors.Wrap(err, "list message flags")
	}
	return flags, nil
}
