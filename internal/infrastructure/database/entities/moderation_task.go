package entities

import (
	"time"

	"gorm.io/datatypes"
)

// ModerationTask is the durable outbox row behind moderator deletions. The
// worker pool drains queued rows with FOR UPDATE SKIP LOCKED and delivers
// them to the moderation webhook.
type ModerationTask struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID             string            `gorm:"type:varchar(50);uniqueIndex;not null"`
	EventType            string            `gorm:"type:varchar(40);not null"`
	MessagePublicID      string            `gorm:"type:varchar(50);not null"`
	ConversationPublicID string            `gorm:"type:varchar(50);not null"`
	ActorID              string            `gorm:"type:varchar(64);not null"`
	Status               string            `gorm:"type:varchar(20);index:idx_moderation_tasks_status;not null;default:'queued'"`
	Attempts             int               `gorm:"not null;default:0"`
	Error                datatypes.JSONMap `gorm:"type:jsonb"`
	QueuedAt             time.Time         `gorm:"not null"`
	StartedAt            *time.Time
	CompletedAt          *time.Time
	FailedAt             *time.Time
}

// TableName specifies the table name for ModerationTask.
func (ModerationTask) TableName() string {
	return "moderation_tasks"
}
