package message

import (
	"context"
	"time"
)

// Cursor addresses a position in a conversation's history for pagination.
// Paging on (created_at, id) instead of offsets keeps pages stable under
// concurrent inserts.
type Cursor struct {
	CreatedAt time.Time
	ID        uint
}

// Repository persists messages, reactions and read receipts.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	FindByPublicID(ctx context.Context, publicID string) (*Message, error)
	// ListPage returns up to limit messages older than the cursor (all newest
	// messages when cursor is nil), ordered newest first, reply previews loaded.
	ListPage(ctx context.Context, conversationID uint, cursor *Cursor, limit int) ([]*Message, error)
	SetEdited(ctx context.Context, id uint, content string, at time.Time) error
	SetDeleted(ctx context.Context, id uint, at time.Time) error

	// AddReaction is an idempotent upsert on the unique triple.
	AddReaction(ctx context.Context, r *Reaction) error
	RemoveReaction(ctx context.Context, messageID uint, userID, emoji string) error
	ListReactions(ctx context.Context, messageID uint) ([]Reaction, error)

	// InsertReceipts writes receipts for every unread, non-deleted message in
	// the conversation up to and including upTo, skipping duplicates. Safe
	// under replay.
	InsertReceipts(ctx context.Context, conversationID uint, userID string, upTo *Message) error
}

// ModerationOutbox enqueues durable moderation events for asynchronous
// delivery to the posting/moderation collaborator.
type ModerationOutbox interface {
	EnqueueDeletion(ctx context.Context, messagePublicID, conversationPublicID, actorID string) error
}
