package event

import (
	"time"

	"github.com/stagelink/modgate/internal/db"
)

const TypeMessageSent = "message_sent"

// deliveryTTL bounds how long an undelivered fan-out event stays queued.
const deliveryTTL = 5 * time.Minute

// MessageSent is published after a clean message row is persisted. Fan-out
// subscribers deliver it to the conversation participants; the pipeline does
// not wait for them.
type MessageSent struct {
	*Base
	Message *db.Message
}

func NewMessageSent(message *db.Message) *MessageSent {
	return &MessageSent{
		Base:    CreateBase(TypeMessageSent, time.Now().Add(deliveryTTL)),
		Message: message,
	}
}

// BusPublisher satisfies the pipeline's publisher seam with the in-process
// bus. A broker-backed implementation can replace it without touching the
// pipeline.
type BusPublisher struct{}

func (BusPublisher) PublishMessageSent(message *db.Message) {
	Bus.Enqueue(NewMessageSent(message))
}
