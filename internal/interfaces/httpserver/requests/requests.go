package requests

// CreateDirectRequest opens (or returns) the direct conversation with a peer.
type CreateDirectRequest struct {
	PeerID string `json:"peer_id" binding:"required"`
}

// CreateGroupRequest creates a named group conversation.
type CreateGroupRequest struct {
	Name      string   `json:"name" binding:"required"`
	MemberIDs []string `json:"member_ids" binding:"required"`
}

// CreateContentLinkedRequest opens (or returns) the conversation rooted in a
// posting.
type CreateContentLinkedRequest struct {
	ContentID string `json:"content_id" binding:"required"`
}

// AddParticipantRequest adds a member to a conversation.
type AddParticipantRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// RenameGroupRequest renames a group conversation.
type RenameGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// MuteRequest toggles notification muting for the caller.
type MuteRequest struct {
	Muted bool `json:"muted"`
}

// SendMessageRequest posts a message over REST.
type SendMessageRequest struct {
	Content       string         `json:"content"`
	Type          string         `json:"type"`
	ReplyToID     *string        `json:"reply_to_id"`
	MediaURL      *string        `json:"media_url"`
	MediaMetadata map[string]any `json:"media_metadata"`
}

// EditMessageRequest replaces a message's content.
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ForwardMessageRequest copies a message into another conversation.
type ForwardMessageRequest struct {
	TargetConversationID string `json:"target_conversation_id" binding:"required"`
}

// ReactionRequest adds or removes a reaction.
type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// MarkReadRequest records read receipts up to a message.
type MarkReadRequest struct {
	UpToMessageID string `json:"up_to_message_id" binding:"required"`
}
