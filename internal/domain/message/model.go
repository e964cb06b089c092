package message

import (
	"time"
)

// Type classifies message content.
type Type string

const (
	TypeText   Type = "text"
	TypeImage  Type = "image"
	TypeFile   Type = "file"
	TypeLink   Type = "link"
	TypeSystem Type = "system"
)

// RedactedContent replaces the body of soft-deleted messages in every
// consumer-facing rendering, including reply previews.
const RedactedContent = "message deleted"

// Message is a single persisted message. DeletedAt marks soft deletion: the
// row survives as a reply target but its content must never reach consumers.
type Message struct {
	ID                   uint
	PublicID             string
	ConversationID       uint
	ConversationPublicID string
	SenderID             string
	Content              string
	EncryptionKeyRef     *string
	Type                 Type
	MediaURL             *string
	MediaMetadata        map[string]any
	ReplyToID            *uint
	ReplyToPublicID      *string
	ReplyPreview         *ReplyPreview
	IsSystem             bool
	CreatedAt            time.Time
	EditedAt             *time.Time
	DeletedAt            *time.Time
	Reactions            []Reaction
}

// ReplyPreview is the denormalized rendering of a reply target.
type ReplyPreview struct {
	PublicID string
	SenderID string
	Content  string
	Deleted  bool
}

// Reaction is a (message, user, emoji) triple. The triple is unique; a user
// may react with several distinct emoji to one message.
type Reaction struct {
	MessageID uint
	UserID    string
	Emoji     string
	CreatedAt time.Time
}

// ReadReceipt records that a user has read a message.
type ReadReceipt struct {
	MessageID uint
	UserID    string
	ReadAt    time.Time
}

// ReadState summarizes the outcome of a mark-read call.
type ReadState struct {
	ConversationPublicID string
	UserID               string
	UpToMessageID        string
	LastReadAt           time.Time
}

// Page is one history page, newest first. NextCursor is empty on the last page.
type Page struct {
	Messages   []*Message
	NextCursor string
	HasMore    bool
}

// SendParams carries everything needed to persist a new message.
type SendParams struct {
	ConversationID string
	SenderID       string
	Content        string
	Type           Type
	ReplyToID      *string
	MediaURL       *string
	MediaMetadata  map[string]any
	EncryptionRef  *string
}

// Deleted reports whether the message has been soft-deleted.
func (m *Message) Deleted() bool {
	return m.DeletedAt != nil
}

// Sanitized returns a copy safe to hand to consumers: soft-deleted messages
// have their content, media and encryption reference redacted, and reply
// previews pointing at deleted targets render the placeholder.
func (m *Message) Sanitized() *Message {
	out := *m
	if m.Deleted() {
		out.Content = RedactedContent
		out.MediaURL = nil
		out.MediaMetadata = nil
		out.EncryptionKeyRef = nil
	}
	if m.ReplyPreview != nil {
		preview := *m.ReplyPreview
		if preview.Deleted {
			preview.Content = RedactedContent
		}
		out.ReplyPreview = &preview
	}
	return &out
}

// ForwardMarkerKey tags forwarded copies in media metadata with the source
// message's public id.
const ForwardMarkerKey = "forwarded_from"

// ForwardedFrom returns the source message id when the message is a forward.
func (m *Message) ForwardedFrom() (string, bool) {
	if m.MediaMetadata == nil {
		return "", false
	}
	src, ok := m.MediaMetadata[ForwardMarkerKey].(string)
	return src, ok && src != ""
}
