package conversation

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/database/entities"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/platformerrors"
)

// ParticipantRepository persists membership rows.
type ParticipantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository builds a participant repository.
func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// Add inserts a membership row.
func (r *ParticipantRepository) Add(ctx context.Context, conversationID uint, p *domain.Participant) error {
	entity := entities.NewSchemaParticipant(p)
	entity.ConversationID = conversationID

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to add participant",
			err,
			"participant-add-error",
		)
	}
	p.ID = entity.ID
	p.ConversationID = conversationID
	return nil
}

// Find fetches one membership row.
func (r *ParticipantRepository) Find(ctx context.Context, conversationID uint, userID string) (*domain.Participant, error) {
	var entity entities.ConversationParticipant
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				"participant not found",
				nil,
				"participant-not-found",
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fetch participant",
			err,
			"participant-fetch-error",
		)
	}
	return entity.EtoD(), nil
}

// Reactivate clears LeftAt on an existing membership so a re-added member
// keeps their original join record.
func (r *ParticipantRepository) Reactivate(ctx context.Context, conversationID uint, userID string) error {
	return r.update(ctx, conversationID, userID, map[string]interface{}{"left_at": nil}, "participant-reactivate-error")
}

// SetLeftAt soft-removes the member.
func (r *ParticipantRepository) SetLeftAt(ctx context.Context, conversationID uint, userID string, at time.Time) error {
	return r.update(ctx, conversationID, userID, map[string]interface{}{"left_at": at}, "participant-leave-error")
}

// SetMuted toggles notification muting.
func (r *ParticipantRepository) SetMuted(ctx context.Context, conversationID uint, userID string, muted bool) error {
	return r.update(ctx, conversationID, userID, map[string]interface{}{"is_muted": muted}, "participant-mute-error")
}

// AdvanceLastRead moves the read watermark forward, never backwards.
func (r *ParticipantRepository) AdvanceLastRead(ctx context.Context, conversationID uint, userID string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&entities.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_at", gorm.Expr("GREATEST(COALESCE(last_read_at, 'epoch'::timestamptz), ?)", at)).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to advance read watermark",
			err,
			"participant-read-error",
		)
	}
	return nil
}

// ListActive returns the current members of a conversation.
func (r *ParticipantRepository) ListActive(ctx context.Context, conversationID uint) ([]domain.Participant, error) {
	var rows []entities.ConversationParticipant
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND left_at IS NULL", conversationID).
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list participants",
			err,
			"participant-list-error",
		)
	}

	participants := make([]domain.Participant, len(rows))
	for i := range rows {
		participants[i] = *rows[i].EtoD()
	}
	return participants, nil
}

func (r *ParticipantRepository) update(ctx context.Context, conversationID uint, userID string, values map[string]interface{}, code string) error {
	result := r.db.WithContext(ctx).
		Model(&entities.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Updates(values)
	if result.Error != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update participant",
			result.Error,
			code,
		)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"participant not found",
			nil,
			code+"-missing",
		)
	}
	return nil
}
