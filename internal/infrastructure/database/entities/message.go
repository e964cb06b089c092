package entities

import (
	"time"

	"gorm.io/datatypes"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/message"
)

// Message represents the database schema for messages. Deletion is a soft
// mark: DeletedAt is set, content stays in storage, and redaction happens at
// the domain layer. ConversationPublicID is denormalized so broadcasts and
// moderation events never need a join.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_messages_conversation_created,priority:2"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID             string            `gorm:"type:varchar(50);uniqueIndex;not null"`
	ConversationID       uint              `gorm:"index:idx_messages_conversation_created,priority:1;not null"`
	ConversationPublicID string            `gorm:"type:varchar(50);not null"`
	SenderID             string            `gorm:"type:varchar(64);index:idx_messages_sender;not null"`
	Content              string            `gorm:"type:text;not null"`
	EncryptionKeyRef     *string           `gorm:"type:varchar(128)"`
	Type                 message.Type      `gorm:"type:varchar(20);not null;default:'text'"`
	MediaURL             *string           `gorm:"type:text"`
	MediaMetadata        datatypes.JSONMap `gorm:"type:jsonb"`
	ReplyToID            *uint             `gorm:"index:idx_messages_reply_to"`
	IsSystem             bool              `gorm:"not null;default:false"`
	EditedAt             *time.Time
	DeletedAt            *time.Time

	ReplyTo   *Message          `gorm:"foreignKey:ReplyToID"`
	Reactions []MessageReaction `gorm:"foreignKey:MessageID"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// MessageReaction represents one (message, user, emoji) reaction.
type MessageReaction struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	MessageID uint   `gorm:"uniqueIndex:idx_reactions_message_user_emoji;not null"`
	UserID    string `gorm:"type:varchar(64);uniqueIndex:idx_reactions_message_user_emoji;not null"`
	Emoji     string `gorm:"type:varchar(32);uniqueIndex:idx_reactions_message_user_emoji;not null"`
}

// TableName specifies the table name for MessageReaction.
func (MessageReaction) TableName() string {
	return "message_reactions"
}

// ReadReceipt records that a user has read a message. The pair is unique so
// replayed mark-read calls are no-ops.
type ReadReceipt struct {
	ID     uint      `gorm:"primaryKey"`
	ReadAt time.Time `gorm:"autoCreateTime"`

	MessageID uint   `gorm:"uniqueIndex:idx_receipts_message_user;not null"`
	UserID    string `gorm:"type:varchar(64);uniqueIndex:idx_receipts_message_user;not null"`
}

// TableName specifies the table name for ReadReceipt.
func (ReadReceipt) TableName() string {
	return "read_receipts"
}

// EtoD converts database entity to domain model
func (m *Message) EtoD() *message.Message {
	reactions := make([]message.Reaction, len(m.Reactions))
	for i, r := range m.Reactions {
		reactions[i] = *r.EtoD()
	}

	out := &message.Message{
		ID:                   m.ID,
		PublicID:             m.PublicID,
		ConversationID:       m.ConversationID,
		ConversationPublicID: m.ConversationPublicID,
		SenderID:             m.SenderID,
		Content:              m.Content,
		EncryptionKeyRef:     m.EncryptionKeyRef,
		Type:                 m.Type,
		MediaURL:             m.MediaURL,
		MediaMetadata:        m.MediaMetadata,
		ReplyToID:            m.ReplyToID,
		IsSystem:             m.IsSystem,
		CreatedAt:            m.CreatedAt,
		EditedAt:             m.EditedAt,
		DeletedAt:            m.DeletedAt,
		Reactions:            reactions,
	}

	if m.ReplyTo != nil {
		out.ReplyToPublicID = &m.ReplyTo.PublicID
		out.ReplyPreview = &message.ReplyPreview{
			PublicID: m.ReplyTo.PublicID,
			SenderID: m.ReplyTo.SenderID,
			Content:  m.ReplyTo.Content,
			Deleted:  m.ReplyTo.DeletedAt != nil,
		}
	}
	return out
}

// EtoD converts database entity to domain model
func (r *MessageReaction) EtoD() *message.Reaction {
	return &message.Reaction{
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji,
		CreatedAt: r.CreatedAt,
	}
}

// NewSchemaMessage creates a database entity from domain model
func NewSchemaMessage(m *message.Message) *Message {
	var metadata datatypes.JSONMap
	if m.MediaMetadata != nil {
		metadata = datatypes.JSONMap(m.MediaMetadata)
	}

	return &Message{
		ID:                   m.ID,
		PublicID:             m.PublicID,
		ConversationID:       m.ConversationID,
		ConversationPublicID: m.ConversationPublicID,
		SenderID:             m.SenderID,
		Content:              m.Content,
		EncryptionKeyRef:     m.EncryptionKeyRef,
		Type:                 m.Type,
		MediaURL:             m.MediaURL,
		MediaMetadata:        metadata,
		ReplyToID:            m.ReplyToID,
		IsSystem:             m.IsSystem,
		CreatedAt:            m.CreatedAt,
		EditedAt:             m.EditedAt,
		DeletedAt:            m.DeletedAt,
	}
}
