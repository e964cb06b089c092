package realtime

import (
	"encoding/json"
	"fmt"
)

// Server-to-client event names.
const (
	EventConversationCreated = "conversation:created"
	EventMessageNew          = "message:new"
	EventMessageEdited       = "message:edited"
	EventMessageDeleted      = "message:deleted"
	EventReactionUpdated     = "reaction:updated"
	EventReadReceipt         = "read:receipt"
	EventTypingStart         = "typing:start"
	EventTypingStop          = "typing:stop"
	EventRoomJoined          = "room:joined"
	EventRoomLeft            = "room:left"
	EventError               = "error"
	EventPong                = "pong"
)

// Client-to-server intents.
const (
	IntentJoin        = "join"
	IntentLeave       = "leave"
	IntentSend        = "send"
	IntentEdit        = "edit"
	IntentDelete      = "delete"
	IntentReact       = "react"
	IntentUnreact     = "unreact"
	IntentMarkRead    = "mark_read"
	IntentTypingStart = "typing_start"
	IntentTypingStop  = "typing_stop"
	IntentPing        = "ping"
)

// Frame is one inbound client frame. Ref is an optional client-chosen
// correlation id echoed back on the matching ack or error.
type Frame struct {
	Intent  string          `json:"intent"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is one outbound server frame.
type Event struct {
	Event   string `json:"event"`
	Ref     string `json:"ref,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorPayload tags a failure with the intent that caused it, so one bad
// frame never affects the rest of the connection.
type ErrorPayload struct {
	Intent  string `json:"intent"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Marshal renders the event for the wire.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// keyAliases maps historical client payload spellings to their canonical
// keys. Older app builds send camelCase, the web client snake_case.
var keyAliases = map[string]string{
	"conversationId":       "conversation_id",
	"convId":               "conversation_id",
	"messageId":            "message_id",
	"msgId":                "message_id",
	"senderId":             "sender_id",
	"from":                 "sender_id",
	"replyToId":            "reply_to_id",
	"replyTo":              "reply_to_id",
	"mediaUrl":             "media_url",
	"mediaMetadata":        "media_metadata",
	"upToMessageId":        "up_to_message_id",
	"upTo":                 "up_to_message_id",
	"targetConversationId": "target_conversation_id",
}

// NormalizePayload rewrites aliased keys to their canonical form. Canonical
// keys win when both spellings are present.
func NormalizePayload(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}

	for key, value := range payload {
		canonical, aliased := keyAliases[key]
		if !aliased {
			continue
		}
		if _, exists := payload[canonical]; !exists {
			payload[canonical] = value
		}
		delete(payload, key)
	}
	return payload, nil
}

// stringField extracts a string value from a normalized payload.
func stringField(payload map[string]any, key string) string {
	value, _ := payload[key].(string)
	return value
}
