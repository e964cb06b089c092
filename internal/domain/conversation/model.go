package conversation

import (
	"fmt"
	"time"
)

// Type distinguishes the three conversation shapes.
type Type string

const (
	TypeDirect        Type = "direct"
	TypeGroup         Type = "group"
	TypeContentLinked Type = "content_linked"
)

// Role is a participant's role within a conversation.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Conversation is a logical messaging thread between alumni.
type Conversation struct {
	ID              uint
	PublicID        string
	Type            Type
	Name            *string
	LinkedContentID *string
	CreatedBy       string
	LastMessageAt   *time.Time
	IsArchived      bool
	ArchivedAt      *time.Time
	Participants    []Participant
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Participant is a membership record. Rows are never physically removed;
// LeftAt marks soft removal so historical attribution survives.
type Participant struct {
	ID             uint
	ConversationID uint
	UserID         string
	Role           Role
	JoinedAt       time.Time
	LeftAt         *time.Time
	LastReadAt     *time.Time
	IsMuted        bool
}

// Active reports whether the participant has not left the conversation.
func (p *Participant) Active() bool {
	return p.LeftAt == nil
}

// Summary is a conversation with its denormalized unread count, as returned
// by per-user listings.
type Summary struct {
	Conversation
	UnreadCount int64
}

// DirectDedupKey derives the uniqueness key for an active direct conversation
// between an unordered pair of users.
func DirectDedupKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("direct:%s:%s", userA, userB)
}

// ContentDedupKey derives the uniqueness key for an active content-linked
// conversation.
func ContentDedupKey(contentID string) string {
	return fmt.Sprintf("content:%s", contentID)
}

// DedupKey returns the derived uniqueness key for the conversation, or nil
// when the conversation carries none (groups, archived rows).
func (c *Conversation) DedupKey() *string {
	if c.IsArchived {
		return nil
	}
	switch c.Type {
	case TypeDirect:
		if len(c.Participants) == 2 {
			key := DirectDedupKey(c.Participants[0].UserID, c.Participants[1].UserID)
			return &key
		}
	case TypeContentLinked:
		if c.LinkedContentID != nil {
			key := ContentDedupKey(*c.LinkedContentID)
			return &key
		}
	}
	return nil
}

// Participant returns the membership record for userID, or nil.
func (c *Conversation) Participant(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// HasActiveParticipant reports whether userID is an active member.
func (c *Conversation) HasActiveParticipant(userID string) bool {
	p := c.Participant(userID)
	return p != nil && p.Active()
}

// NewConversation builds a conversation with its initial participants.
func NewConversation(publicID string, convType Type, createdBy string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		PublicID:  publicID,
		Type:      convType,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewParticipant builds an active membership record.
func NewParticipant(userID string, role Role) Participant {
	return Participant{
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
}
