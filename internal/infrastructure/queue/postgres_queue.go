package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/database/entities"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/idgen"
)

// PostgresQueue implements TaskQueue on the moderation_tasks table.
type PostgresQueue struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewPostgresQueue creates a new PostgreSQL-backed moderation outbox.
func NewPostgresQueue(db *gorm.DB, log zerolog.Logger) *PostgresQueue {
	return &PostgresQueue{
		db:  db,
		log: log.With().Str("component", "postgres-queue").Logger(),
	}
}

// EnqueueDeletion records a moderator deletion for asynchronous delivery.
// Satisfies the message service's ModerationOutbox dependency.
func (q *PostgresQueue) EnqueueDeletion(ctx context.Context, messagePublicID, conversationPublicID, actorID string) error {
	return q.Enqueue(ctx, &Task{
		EventType:            EventModerationDeleted,
		MessagePublicID:      messagePublicID,
		ConversationPublicID: conversationPublicID,
		ActorID:              actorID,
		QueuedAt:             time.Now().UTC(),
	})
}

// Enqueue inserts an outbox row in queued state.
func (q *PostgresQueue) Enqueue(ctx context.Context, task *Task) error {
	publicID, err := idgen.GenerateSecureID("modtask", 20)
	if err != nil {
		return fmt.Errorf("generate task id: %w", err)
	}

	entity := entities.ModerationTask{
		PublicID:             publicID,
		EventType:            task.EventType,
		MessagePublicID:      task.MessagePublicID,
		ConversationPublicID: task.ConversationPublicID,
		ActorID:              task.ActorID,
		Status:               "queued",
		QueuedAt:             task.QueuedAt,
	}

	if err := q.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return fmt.Errorf("enqueue moderation task: %w", err)
	}

	task.PublicID = publicID
	return nil
}

// Dequeue fetches the next queued task using FOR UPDATE SKIP LOCKED.
func (q *PostgresQueue) Dequeue(ctx context.Context) (*Task, error) {
	var entity entities.ModerationTask

	err := q.db.WithContext(ctx).
		Raw("SELECT * FROM moderation_tasks WHERE status = ? ORDER BY queued_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED", "queued").
		Scan(&entity).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // No tasks available
		}
		return nil, fmt.Errorf("dequeue task: %w", err)
	}

	// Check if no rows were returned (entity.ID will be 0)
	if entity.ID == 0 {
		return nil, nil
	}

	return &Task{
		PublicID:             entity.PublicID,
		EventType:            entity.EventType,
		MessagePublicID:      entity.MessagePublicID,
		ConversationPublicID: entity.ConversationPublicID,
		ActorID:              entity.ActorID,
		Attempts:             entity.Attempts,
		QueuedAt:             entity.QueuedAt,
	}, nil
}

// MarkProcessing updates the task status to in_progress.
func (q *PostgresQueue) MarkProcessing(ctx context.Context, publicID string) error {
	now := time.Now()
	result := q.db.WithContext(ctx).
		Model(&entities.ModerationTask{}).
		Where("public_id = ?", publicID).
		Updates(map[string]interface{}{
			"status":     "in_progress",
			"started_at": now,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": now,
		})

	if result.Error != nil {
		return fmt.Errorf("mark processing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("moderation task not found: %s", publicID)
	}
	return nil
}

// MarkCompleted updates the task status to completed.
func (q *PostgresQueue) MarkCompleted(ctx context.Context, publicID string) error {
	now := time.Now()
	result := q.db.WithContext(ctx).
		Model(&entities.ModerationTask{}).
		Where("public_id = ?", publicID).
		Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": now,
			"updated_at":   now,
		})

	if result.Error != nil {
		return fmt.Errorf("mark completed: %w", result.Error)
	}
	return nil
}

// MarkFailed updates the task status to failed.
func (q *PostgresQueue) MarkFailed(ctx context.Context, publicID string, taskErr error) error {
	now := time.Now()
	errorJSON := datatypes.JSONMap{
		"code":    "delivery_failed",
		"message": taskErr.Error(),
	}

	result := q.db.WithContext(ctx).
		Model(&entities.ModerationTask{}).
		Where("public_id = ?", publicID).
		Updates(map[string]interface{}{
			"status":     "failed",
			"error":      errorJSON,
			"failed_at":  now,
			"updated_at": now,
		})

	if result.Error != nil {
		return fmt.Errorf("mark failed: %w", result.Error)
	}
	return nil
}

// GetQueueDepth returns the number of queued moderation events.
func (q *PostgresQueue) GetQueueDepth(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&entities.ModerationTask{}).
		Where("status = ?", "queued").
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("get queue depth: %w", err)
	}
	return count, nil
}
