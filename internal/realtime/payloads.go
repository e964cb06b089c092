package realtime

import (
	"time"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/message"
)

// MessagePayload renders a sanitized message for the wire. The same shape is
// used for broadcasts and REST responses.
func MessagePayload(m *message.Message) map[string]any {
	payload := map[string]any{
		"id":              m.PublicID,
		"conversation_id": m.ConversationPublicID,
		"sender_id":       m.SenderID,
		"content":         m.Content,
		"type":            string(m.Type),
		"is_system":       m.IsSystem,
		"deleted":         m.Deleted(),
		"created_at":      m.CreatedAt.Format(time.RFC3339Nano),
	}
	if m.MediaURL != nil {
		payload["media_url"] = *m.MediaURL
	}
	if m.MediaMetadata != nil {
		payload["media_metadata"] = m.MediaMetadata
	}
	if m.EditedAt != nil {
		payload["edited_at"] = m.EditedAt.Format(time.RFC3339Nano)
	}
	if m.ReplyPreview != nil {
		payload["reply_to"] = map[string]any{
			"id":        m.ReplyPreview.PublicID,
			"sender_id": m.ReplyPreview.SenderID,
			"content":   m.ReplyPreview.Content,
			"deleted":   m.ReplyPreview.Deleted,
		}
	}
	if source, ok := m.ForwardedFrom(); ok {
		payload["forwarded_from"] = source
	}
	if len(m.Reactions) > 0 {
		payload["reactions"] = ReactionsPayload(m.Reactions)
	}
	return payload
}

// ReactionsPayload renders reactions grouped per emoji.
func ReactionsPayload(reactions []message.Reaction) []map[string]any {
	out := make([]map[string]any, len(reactions))
	for i, r := range reactions {
		out[i] = map[string]any{
			"user_id": r.UserID,
			"emoji":   r.Emoji,
		}
	}
	return out
}

// ConversationPayload renders a conversation for the wire.
func ConversationPayload(c *conversation.Conversation) map[string]any {
	participants := make([]map[string]any, 0, len(c.Participants))
	for i := range c.Participants {
		p := &c.Participants[i]
		entry := map[string]any{
			"user_id":   p.UserID,
			"role":      string(p.Role),
			"joined_at": p.JoinedAt.Format(time.RFC3339Nano),
			"is_muted":  p.IsMuted,
			"active":    p.Active(),
		}
		if p.LastReadAt != nil {
			entry["last_read_at"] = p.LastReadAt.Format(time.RFC3339Nano)
		}
		participants = append(participants, entry)
	}

	payload := map[string]any{
		"id":           c.PublicID,
		"type":         string(c.Type),
		"created_by":   c.CreatedBy,
		"is_archived":  c.IsArchived,
		"participants": participants,
		"created_at":   c.CreatedAt.Format(time.RFC3339Nano),
	}
	if c.Name != nil {
		payload["name"] = *c.Name
	}
	if c.LinkedContentID != nil {
		payload["linked_content_id"] = *c.LinkedContentID
	}
	if c.LastMessageAt != nil {
		payload["last_message_at"] = c.LastMessageAt.Format(time.RFC3339Nano)
	}
	return payload
}
