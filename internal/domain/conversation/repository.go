package conversation

import (
	"context"
	"time"
)

// Repository exposes persistence operations for conversation records.
// Create must insert the conversation together with its participants in one
// transaction, and must surface a ConflictError PlatformError when the
// dedup-key uniqueness constraint rejects the row — that constraint is the
// serialization point for concurrent creation races.
type Repository interface {
	Create(ctx context.Context, conv *Conversation) error
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	FindActiveByDedupKey(ctx context.Context, key string) (*Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]Summary, error)
	Archive(ctx context.Context, conversationID uint, at time.Time) error
	UpdateLastMessageAt(ctx context.Context, conversationID uint, at time.Time) error
	Rename(ctx context.Context, conversationID uint, name string) error
}

// ParticipantRepository persists membership records.
type ParticipantRepository interface {
	Add(ctx context.Context, conversationID uint, p *Participant) error
	Find(ctx context.Context, conversationID uint, userID string) (*Participant, error)
	// Reactivate clears LeftAt on an existing membership row.
	Reactivate(ctx context.Context, conversationID uint, userID string) error
	SetLeftAt(ctx context.Context, conversationID uint, userID string, at time.Time) error
	SetMuted(ctx context.Context, conversationID uint, userID string, muted bool) error
	AdvanceLastRead(ctx context.Context, conversationID uint, userID string, at time.Time) error
	ListActive(ctx context.Context, conversationID uint) ([]Participant, error)
}
