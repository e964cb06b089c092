package queue

import (
	"context"
	"time"
)

// EventModerationDeleted is the event type recorded when a moderator
// soft-deletes a message.
const EventModerationDeleted = "message.moderation_deleted"

// Task is one durable moderation event awaiting delivery.
type Task struct {
	PublicID             string
	EventType            string
	MessagePublicID      string
	ConversationPublicID string
	ActorID              string
	Attempts             int
	QueuedAt             time.Time
}

// TaskQueue defines the interface for the moderation outbox.
type TaskQueue interface {
	// Enqueue adds a moderation event to the outbox
	Enqueue(ctx context.Context, task *Task) error

	// Dequeue fetches the next queued event using SELECT FOR UPDATE SKIP LOCKED
	Dequeue(ctx context.Context) (*Task, error)

	// MarkProcessing updates task status to in_progress
	MarkProcessing(ctx context.Context, taskID string) error

	// MarkCompleted updates task status to completed
	MarkCompleted(ctx context.Context, taskID string) error

	// MarkFailed updates task status to failed
	MarkFailed(ctx context.Context, taskID string, err error) error

	// GetQueueDepth returns the number of queued tasks
	GetQueueDepth(ctx context.Context) (int64, error)
}
