package webhook

import (
	"context"
	"time"
)

// Service delivers moderation event notifications to the posting/moderation
// backend.
type Service interface {
	// NotifyModerationDeleted reports that a moderator removed a message.
	NotifyModerationDeleted(ctx context.Context, event *ModerationEvent) error
}

// ModerationEvent is the structure sent to the moderation webhook URL.
type ModerationEvent struct {
	TaskID         string    `json:"task_id"`
	Event          string    `json:"event"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	ActorID        string    `json:"actor_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}
