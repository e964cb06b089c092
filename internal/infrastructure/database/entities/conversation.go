package entities

import (
	"time"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
)

// Conversation represents the database schema for conversations. DedupKey
// carries the uniqueness constraint for DIRECT and CONTENT_LINKED
// conversations; it is NULL for groups and is cleared on archive so the key
// becomes reusable.
type Conversation struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID        string            `gorm:"type:varchar(50);uniqueIndex;not null"`
	Type            conversation.Type `gorm:"type:varchar(20);not null"`
	Name            *string           `gorm:"type:varchar(256)"`
	LinkedContentID *string           `gorm:"type:varchar(64);index:idx_conversations_linked_content"`
	DedupKey        *string           `gorm:"type:varchar(160);uniqueIndex:idx_conversations_dedup_key"`
	CreatedBy       string            `gorm:"type:varchar(64);not null"`
	LastMessageAt   *time.Time        `gorm:"index:idx_conversations_last_message_at"`
	IsArchived      bool              `gorm:"not null;default:false"`
	ArchivedAt      *time.Time

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationParticipant represents a membership row. LeftAt marks soft
// removal; the row is kept so past participants retain history access.
type ConversationParticipant struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	ConversationID uint              `gorm:"uniqueIndex:idx_participants_conversation_user;not null"`
	UserID         string            `gorm:"type:varchar(64);uniqueIndex:idx_participants_conversation_user;index:idx_participants_user;not null"`
	Role           conversation.Role `gorm:"type:varchar(20);not null;default:'member'"`
	JoinedAt       time.Time         `gorm:"not null"`
	LeftAt         *time.Time
	LastReadAt     *time.Time
	IsMuted        bool `gorm:"not null;default:false"`
}

// TableName specifies the table name for ConversationParticipant.
func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

// EtoD converts database entity to domain model
func (c *Conversation) EtoD() *conversation.Conversation {
	participants := make([]conversation.Participant, len(c.Participants))
	for i, p := range c.Participants {
		participants[i] = *p.EtoD()
	}

	return &conversation.Conversation{
		ID:              c.ID,
		PublicID:        c.PublicID,
		Type:            c.Type,
		Name:            c.Name,
		LinkedContentID: c.LinkedContentID,
		CreatedBy:       c.CreatedBy,
		LastMessageAt:   c.LastMessageAt,
		IsArchived:      c.IsArchived,
		ArchivedAt:      c.ArchivedAt,
		Participants:    participants,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// EtoD converts database entity to domain model
func (p *ConversationParticipant) EtoD() *conversation.Participant {
	return &conversation.Participant{
		ID:             p.ID,
		ConversationID: p.ConversationID,
		UserID:         p.UserID,
		Role:           p.Role,
		JoinedAt:       p.JoinedAt,
		LeftAt:         p.LeftAt,
		LastReadAt:     p.LastReadAt,
		IsMuted:        p.IsMuted,
	}
}

// NewSchemaConversation creates a database entity from domain model
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	participants := make([]ConversationParticipant, len(c.Participants))
	for i := range c.Participants {
		participants[i] = *NewSchemaParticipant(&c.Participants[i])
	}

	return &Conversation{
		ID:              c.ID,
		PublicID:        c.PublicID,
		Type:            c.Type,
		Name:            c.Name,
		LinkedContentID: c.LinkedContentID,
		DedupKey:        c.DedupKey(),
		CreatedBy:       c.CreatedBy,
		LastMessageAt:   c.LastMessageAt,
		IsArchived:      c.IsArchived,
		ArchivedAt:      c.ArchivedAt,
		Participants:    participants,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// NewSchemaParticipant creates a database entity from domain model
func NewSchemaParticipant(p *conversation.Participant) *ConversationParticipant {
	return &ConversationParticipant{
		ID:             p.ID,
		ConversationID: p.ConversationID,
		UserID:         p.UserID,
		Role:           p.Role,
		JoinedAt:       p.JoinedAt,
		LeftAt:         p.LeftAt,
		LastReadAt:     p.LastReadAt,
		IsMuted:        p.IsMuted,
	}
}
