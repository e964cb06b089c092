package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/message"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/database/entities"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/platformerrors"
)

// Repository persists messages, reactions and read receipts.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a message repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the message record.
func (r *Repository) Create(ctx context.Context, m *domain.Message) error {
	entity := entities.NewSchemaMessage(m)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create message",
			err,
			"message-create-error",
		)
	}

	m.ID = entity.ID
	m.CreatedAt = entity.CreatedAt
	return nil
}

// FindByPublicID fetches a message with its reply target and reactions.
func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (*domain.Message, error) {
	var entity entities.Message
	if err := r.db.WithContext(ctx).
		Preload("ReplyTo").
		Preload("Reactions").
		Where("public_id = ?", publicID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("message not found: %s", publicID),
				nil,
				"message-not-found",
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fetch message",
			err,
			"message-fetch-error",
		)
	}
	return entity.EtoD(), nil
}

// ListPage returns messages older than the cursor, newest first. Soft-deleted
// rows are included so the page renders them redacted rather than leaving
// holes in reply chains.
func (r *Repository) ListPage(ctx context.Context, conversationID uint, cursor *domain.Cursor, limit int) ([]*domain.Message, error) {
	query := r.db.WithContext(ctx).
		Preload("ReplyTo").
		Preload("Reactions").
		Where("conversation_id = ?", conversationID)

	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []entities.Message
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list messages",
			err,
			"message-list-error",
		)
	}

	msgs := make([]*domain.Message, len(rows))
	for i := range rows {
		msgs[i] = rows[i].EtoD()
	}
	return msgs, nil
}

// SetEdited updates content and the edit timestamp.
func (r *Repository) SetEdited(ctx context.Context, id uint, content string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"content":   content,
			"edited_at": at,
		})
	if result.Error != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to edit message",
			result.Error,
			"message-edit-error",
		)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"message not found or deleted",
			nil,
			"message-edit-missing",
		)
	}
	return nil
}

// SetDeleted soft-deletes the message. The row is retained.
func (r *Repository) SetDeleted(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete message",
			err,
			"message-delete-error",
		)
	}
	return nil
}

// AddReaction upserts on the unique (message, user, emoji) triple; duplicate
// reactions are silently absorbed.
func (r *Repository) AddReaction(ctx context.Context, reaction *domain.Reaction) error {
	entity := entities.MessageReaction{
		MessageID: reaction.MessageID,
		UserID:    reaction.UserID,
		Emoji:     reaction.Emoji,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}, {Name: "emoji"}},
			DoNothing: true,
		}).
		Create(&entity).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to add reaction",
			err,
			"reaction-add-error",
		)
	}
	return nil
}

// RemoveReaction deletes the triple; removing an absent reaction is a no-op.
func (r *Repository) RemoveReaction(ctx context.Context, messageID uint, userID, emoji string) error {
	err := r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&entities.MessageReaction{}).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to remove reaction",
			err,
			"reaction-remove-error",
		)
	}
	return nil
}

// ListReactions returns all reactions on a message.
func (r *Repository) ListReactions(ctx context.Context, messageID uint) ([]domain.Reaction, error) {
	var rows []entities.MessageReaction
	if err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list reactions",
			err,
			"reaction-list-error",
		)
	}

	reactions := make([]domain.Reaction, len(rows))
	for i, row := range rows {
		reactions[i] = *row.EtoD()
	}
	return reactions, nil
}

// InsertReceipts writes receipts for every non-deleted message the user has
// not yet read, up to and including upTo. ON CONFLICT DO NOTHING makes
// replayed mark-read calls no-ops.
func (r *Repository) InsertReceipts(ctx context.Context, conversationID uint, userID string, upTo *domain.Message) error {
	err := r.db.WithContext(ctx).Exec(`
		INSERT INTO read_receipts (message_id, user_id, read_at)
		SELECT m.id, ?, NOW()
		FROM messages m
		WHERE m.conversation_id = ?
		  AND m.deleted_at IS NULL
		  AND m.sender_id <> ?
		  AND (m.created_at, m.id) <= (?, ?)
		ON CONFLICT (message_id, user_id) DO NOTHING`,
		userID, conversationID, userID, upTo.CreatedAt, upTo.ID).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to insert read receipts",
			err,
			"receipt-insert-error",
		)
	}
	return nil
}
