package db

import (
	"context"
	"time"
)

type Client interface {
	Close() error

	IncrementStrike(ctx context.Context, userID string, at time.Time) (*StrikeRecord, error)
	ApplySuspension(ctx context.Context, userID string, until time.Time) error
	ClearSuspension(ctx context.Context, userID string) error
	GetStrikeRecord(ctx context.Context, userID string) (*StrikeRecord, error)

	CreateConversation(ctx context.Context, conversation *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)

	CreateMessage(ctx context.Context, message *Message) error
	GetConversationMessages(ctx context.Context, conversationID string, limit, offset int) ([]*Message, error)

	CreateMessageFlag(ctx context.Context, flag *MessageFlag) error
	ListMessageFlags(ctx context.Context, limit, offset int) ([]*MessageFlag, error)
}
