package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	domain "github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/database/entities"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/platformerrors"
)

// Repository persists conversations and their participant associations.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a conversation repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the conversation with its participants in one transaction.
// A dedup-key collision surfaces as a ConflictError so the service can
// resolve the creation race by re-reading the winner.
func (r *Repository) Create(ctx context.Context, conv *domain.Conversation) error {
	entity := entities.NewSchemaConversation(conv)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			return platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeConflict,
				"conversation already exists for this dedup key",
				err,
				"conversation-create-conflict",
			)
		}
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create conversation",
			err,
			"conversation-create-error",
		)
	}

	conv.ID = entity.ID
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	for i := range entity.Participants {
		conv.Participants[i].ID = entity.Participants[i].ID
		conv.Participants[i].ConversationID = entity.ID
	}
	return nil
}

// FindByPublicID fetches a conversation with its participants.
func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (*domain.Conversation, error) {
	var entity entities.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("public_id = ?", publicID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("conversation not found: %s", publicID),
				nil,
				"conversation-not-found",
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fetch conversation",
			err,
			"conversation-fetch-error",
		)
	}
	return entity.EtoD(), nil
}

// FindActiveByDedupKey fetches the live conversation holding the dedup key.
// Archived rows never match: their key is cleared on archive.
func (r *Repository) FindActiveByDedupKey(ctx context.Context, key string) (*domain.Conversation, error) {
	var entity entities.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("dedup_key = ? AND is_archived = ?", key, false).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				"no active conversation for dedup key",
				nil,
				"conversation-dedup-not-found",
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fetch conversation by dedup key",
			err,
			"conversation-dedup-fetch-error",
		)
	}
	return entity.EtoD(), nil
}

// ListForUser returns the user's active, unarchived conversations with
// unread counts, most recent activity first.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]domain.Summary, error) {
	var convs []entities.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ? AND cp.left_at IS NULL AND conversations.is_archived = ?", userID, false).
		Order("conversations.last_message_at DESC NULLS LAST, conversations.id DESC").
		Find(&convs).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list conversations",
			err,
			"conversation-list-error",
		)
	}

	unread, err := r.unreadCounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.Summary, len(convs))
	for i := range convs {
		summaries[i] = domain.Summary{
			Conversation: *convs[i].EtoD(),
			UnreadCount:  unread[convs[i].ID],
		}
	}
	return summaries, nil
}

// unreadCounts tallies, per conversation, messages newer than the user's
// read watermark. Deleted messages and the user's own messages don't count.
func (r *Repository) unreadCounts(ctx context.Context, userID string) (map[uint]int64, error) {
	type row struct {
		ConversationID uint
		Count          int64
	}
	var rows []row

	err := r.db.WithContext(ctx).Raw(`
		SELECT m.conversation_id AS conversation_id, COUNT(*) AS count
		FROM messages m
		JOIN conversation_participants cp
		  ON cp.conversation_id = m.conversation_id AND cp.user_id = ?
		WHERE cp.left_at IS NULL
		  AND m.deleted_at IS NULL
		  AND m.sender_id <> ?
		  AND m.created_at > COALESCE(cp.last_read_at, 'epoch'::timestamptz)
		GROUP BY m.conversation_id`, userID, userID).
		Scan(&rows).Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to count unread messages",
			err,
			"conversation-unread-error",
		)
	}

	counts := make(map[uint]int64, len(rows))
	for _, rw := range rows {
		counts[rw.ConversationID] = rw.Count
	}
	return counts, nil
}

// Archive marks the conversation archived and clears its dedup key so the
// key can be claimed by a future conversation.
func (r *Repository) Archive(ctx context.Context, conversationID uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"is_archived": true,
			"archived_at": at,
			"dedup_key":   nil,
		})
	if result.Error != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to archive conversation",
			result.Error,
			"conversation-archive-error",
		)
	}
	return nil
}

// UpdateLastMessageAt advances the activity timestamp.
func (r *Repository) UpdateLastMessageAt(ctx context.Context, conversationID uint, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ? AND (last_message_at IS NULL OR last_message_at < ?)", conversationID, at).
		Update("last_message_at", at).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update last message timestamp",
			err,
			"conversation-touch-error",
		)
	}
	return nil
}

// Rename updates the conversation name.
func (r *Repository) Rename(ctx context.Context, conversationID uint, name string) error {
	err := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", conversationID).
		Update("name", name).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to rename conversation",
			err,
			"conversation-rename-error",
		)
	}
	return nil
}

// isUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
