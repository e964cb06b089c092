package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/message"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/platformerrors"
)

// noExclude is the empty exclusion set for full-room broadcasts.
var noExclude = map[string]struct{}{}

// Gateway dispatches client intents to the domain services and fans results
// out through the registry. Each intent is handled in isolation: a failure
// produces an error event tagged with the intent and leaves the connection
// and its other subscriptions untouched.
type Gateway struct {
	registry       *Registry
	typing         *TypingTracker
	conversations  conversation.Service
	messages       message.Service
	storageTimeout time.Duration
	log            zerolog.Logger
}

// NewGateway wires the dispatch loop. The typing tracker's expiry callback
// broadcasts the stop so an abandoned indicator clears itself.
func NewGateway(
	registry *Registry,
	conversations conversation.Service,
	messages message.Service,
	typingExpiry time.Duration,
	storageTimeout time.Duration,
	log zerolog.Logger,
) *Gateway {
	g := &Gateway{
		registry:       registry,
		conversations:  conversations,
		messages:       messages,
		storageTimeout: storageTimeout,
		log:            log.With().Str("component", "ws-gateway").Logger(),
	}
	g.typing = NewTypingTracker(typingExpiry, g.broadcastTypingStop)
	return g
}

// Registry exposes the room registry for handlers that broadcast after REST
// mutations.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// HandleConnection owns the connection's lifecycle: registration, both
// pumps, and teardown.
func (g *Gateway) HandleConnection(ctx context.Context, c *Client) {
	g.registry.Register(c)

	go c.WritePump()
	c.ReadPump(func(data []byte) {
		g.dispatch(ctx, c, data)
	})

	g.registry.DropConnection(c.ID)
	if len(g.registry.ConnectionsOfUser(c.UserID)) == 0 {
		g.typing.StopAll(c.UserID)
	}
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.SendEvent(&Event{Event: EventError, Payload: ErrorPayload{
			Intent: "unknown", Code: "malformed-frame", Message: "frame is not valid JSON",
		}})
		return
	}

	payload, err := NormalizePayload(frame.Payload)
	if err != nil {
		g.sendError(c, &frame, "malformed-payload", err.Error())
		return
	}

	switch frame.Intent {
	case IntentPing:
		c.SendEvent(&Event{Event: EventPong, Ref: frame.Ref})
	case IntentJoin:
		g.handleJoin(ctx, c, &frame, payload)
	case IntentLeave:
		g.handleLeave(c, &frame, payload)
	case IntentSend:
		g.handleSend(ctx, c, &frame, payload)
	case IntentEdit:
		g.handleEdit(ctx, c, &frame, payload)
	case IntentDelete:
		g.handleDelete(ctx, c, &frame, payload)
	case IntentReact:
		g.handleReaction(ctx, c, &frame, payload, true)
	case IntentUnreact:
		g.handleReaction(ctx, c, &frame, payload, false)
	case IntentMarkRead:
		g.handleMarkRead(ctx, c, &frame, payload)
	case IntentTypingStart:
		g.handleTyping(c, &frame, payload, true)
	case IntentTypingStop:
		g.handleTyping(c, &frame, payload, false)
	default:
		g.sendError(c, &frame, "unknown-intent", "unsupported intent: "+frame.Intent)
	}
}

func (g *Gateway) handleJoin(ctx context.Context, c *Client, frame *Frame, payload map[string]any) {
	roomID := stringField(payload, "conversation_id")
	if roomID == "" {
		g.sendError(c, frame, "missing-conversation", "conversation_id is required")
		return
	}

	opCtx, cancel := g.storageContext(ctx)
	defer cancel()

	if _, _, err := g.conversations.ActiveParticipant(opCtx, roomID, c.ProfileID); err != nil {
		g.sendPlatformError(c, frame, err)
		return
	}

	g.registry.Join(roomID, c)
	c.SendEvent(&Event{Event: EventRoomJoined, Ref: frame.Ref, Payload: map[string]any{
		"conversation_id": roomID,
		"online_users":    g.registry.OnlineUsers(roomID),
	}})
	g.registry.Broadcast(roomID, &Event{Event: EventRoomJoined, Payload: map[string]any{
		"conversation_id": roomID,
		"user_id":         c.ProfileID,
	}}, map[string]struct{}{c.ID: {}})
}

func (g *Gateway) handleLeave(c *Client, frame *Frame, payload map[string]any) {
	roomID := stringField(payload, "conversation_id")
	if roomID == "" {
		g.sendError(c, frame, "missing-conversation", "conversation_id is required")
		return
	}

	g.registry.Leave(roomID, c.ID)
	g.typing.Stop(roomID, c.ProfileID)
	c.SendEvent(&Event{Event: EventRoomLeft, Ref: frame.Ref, Payload: map[string]any{
		"conversation_id": roomID,
	}})
	g.registry.Broadcast(roomID, &Event{Event: EventRoomLeft, Payload: map[string]any{
		"conversation_id": roomID,
		"user_id":         c.ProfileID,
	}}, noExclude)
}

func (g *Gateway) handleSend(ctx context.Context, c *Client, frame *Frame, payload map[string]any) {
	params := message.SendParams{
		ConversationID: stringField(payload, "conversation_id"),
		SenderID:       c.ProfileID,
		Content:        stringField(payload, "content"),
		Type:           message.Type(stringField(payload, "type")),
	}
	if replyTo := stringField(payload, "reply_to_id"); replyTo != "" {
		params.ReplyToID = &replyTo
	}
	if mediaURL := stringField(payload, "media_url"); mediaURL != "" {
		params.MediaURL = &mediaURL
	}
	if metadata, ok := payload["media_metadata"].(map[string]any); ok {
		params.MediaMetadata = metadata
	}

	opCtx, cancel := g.storageContext(ctx)
	defer cancel()

	msg, err := g.messages.Send(opCtx, params)
	if err != nil {
		g.sendPlatformError(c, frame, err)
		return
	}

	// Sender devices receive the broadcast too; the ack is what carries ref.
	c.SendEvent(&Event{Event: EventMessageNew, Ref: frame.Ref, Payload: MessagePayload(msg)})
	g.BroadcastMessageNew(msg, map[string]struct{}{c.ID: {}})
	g.typing.Stop(msg.ConversationPublicID, c.ProfileID)
}

func (g *Gateway) handleEdit(ctx context.Context, c *Client, frame *Frame, payload map[string]any) {
	messageID := stringField(payload, "message_id")
	content := stringField(payload, "content")

	opCtx, cancel := g.storageContext(ctx)
	defer cancel()

	msg, err := g.messages.Edit(opCtx, messageID, c.ProfileID, content)
	if err != nil {
		g.sendPlatformError(c, frame, err)
		return
	}

	c.SendEvent(&Event{Event: EventMessageEdited, Ref: frame.Ref, Payload: MessagePayload(msg)})
	g.registry.Broadcast(msg.ConversationPublicID,
		&Event{Event: EventMessageEdited, Payload: MessagePayload(msg)},
		map[string]struct{}{c.ID: {}})
}

func (g *Gateway) handleDelete(ctx context.Context, c *Client, frame *Frame, payload map[string]any) {
	messageID := stringField(payload, "message_id")

	opCtx, cancel := g.storageContext(ctx)
	defer cancel()

	msg, err := g.messages.SoftDelete(opCtx, messageID, message.Actor{
		UserID:    c.ProfileID,
		Moderator: c.Moderator,
	})
	if err != nil {
		g.sendPlatformError(c, frame, err)
		return
	}

	c.SendEvent(&Event{Event: EventMessageDeleted, Ref: frame.Ref, Payload: MessagePayload(msg)})
	g.registry.Broadcast(msg.ConversationPublicID,
		&Event{Event: EventMessageDeleted, Payload: MessagePayload(msg)},
		map[string]struct{}{c.ID: {}})
}

func (g *Gateway) handleReaction(ctx context.Context, c *Client, frame *Frame, payload map[string]any, add bool) {
	messageID := stringField(payload, "message_id")
	emoji := stringField(payload, "emoji")

	opCtx, cancel := g.storageContext(ctx)
	defer cancel()

	var (
		msg *message.Message
		err error
	)
	if add {
		msg, err = g.messages.React(opCtx, messageID, c.ProfileID, emoji)
	} else {
		msg, err = g.messages.Unreact(opCtx, messageID, c.ProfileID, emoji)
	}
	if err != nil {
		g.sendPlatformError(c, frame, err)
		return
	}

	event := map[string]any{
		"conversation_id": msg.ConversationPublicID,
		"message_id":      msg.PublicID,
		"reactions":       ReactionsPayload(msg.Reactions),
	}
	c.SendEvent(&Event{Event: EventReactionUpdated, Ref: frame.Ref, Payload: event})
	g.registry.Broadcast(msg.ConversationPublicID,
		&Event{Event: EventReactionUpdated, Payload: event},
		map[string]struct{}{c.ID: {}})
}

func (g *Gateway) handleMarkRead(ctx context.Context, c *Client, frame *Frame, payload map[string]any) {
	conversationID := stringField(payload, "conversation_id")
	upTo := stringField(payload, "up_to_message_id")

	opCtx, cancel := g.storageContext(ctx)
	defer cancel()

	state, err := g.messages.MarkRead(opCtx, conversationID, c.ProfileID, upTo)
	if err != nil {
		g.sendPlatformError(c, frame, err)
		return
	}

	event := map[string]any{
		"conversation_id":  state.ConversationPublicID,
		"user_id":          state.UserID,
		"up_to_message_id": state.UpToMessageID,
	}
	c.SendEvent(&Event{Event: EventReadReceipt, Ref: frame.Ref, Payload: event})
	g.registry.Broadcast(state.ConversationPublicID,
		&Event{Event: EventReadReceipt, Payload: event},
		map[string]struct{}{c.ID: {}})
}

// handleTyping broadcasts typing indicators. The sender's own devices are
// excluded: a user never sees themselves typing.
func (g *Gateway) handleTyping(c *Client, frame *Frame, payload map[string]any, start bool) {
	roomID := stringField(payload, "conversation_id")
	if roomID == "" {
		g.sendError(c, frame, "missing-conversation", "conversation_id is required")
		return
	}
	if !g.registry.InRoom(roomID, c.ID) {
		g.sendError(c, frame, "not-in-room", "join the conversation before typing")
		return
	}

	if start {
		g.typing.Start(roomID, c.ProfileID)
		g.registry.Broadcast(roomID, &Event{Event: EventTypingStart, Payload: map[string]any{
			"conversation_id": roomID,
			"user_id":         c.ProfileID,
		}}, g.registry.ConnectionsOfUser(c.UserID))
	} else {
		g.typing.Stop(roomID, c.ProfileID)
	}
}

// broadcastTypingStop is the tracker callback; it fires on explicit stops
// and on expiry.
func (g *Gateway) broadcastTypingStop(roomID, userID string) {
	g.registry.Broadcast(roomID, &Event{Event: EventTypingStop, Payload: map[string]any{
		"conversation_id": roomID,
		"user_id":         userID,
	}}, noExclude)
}

// BroadcastMessageNew fans a persisted message out to its room.
func (g *Gateway) BroadcastMessageNew(msg *message.Message, exclude map[string]struct{}) {
	g.registry.Broadcast(msg.ConversationPublicID,
		&Event{Event: EventMessageNew, Payload: MessagePayload(msg)}, exclude)
}

// BroadcastConversationCreated notifies the room (if anyone has joined it
// yet) that the conversation exists. REST-created conversations go through
// here.
func (g *Gateway) BroadcastConversationCreated(conv *conversation.Conversation) {
	g.registry.Broadcast(conv.PublicID,
		&Event{Event: EventConversationCreated, Payload: ConversationPayload(conv)}, noExclude)
}

// EvictFromRoom tears down a removed participant's live subscription. Every
// connection the user holds leaves the room and is told so, the remaining
// members see the departure, and any typing indicator clears. Called after
// the membership row is revoked.
func (g *Gateway) EvictFromRoom(roomID, userID string) {
	evicted := g.registry.EvictUserFromRoom(roomID, userID)
	g.typing.Stop(roomID, userID)

	payload := map[string]any{
		"conversation_id": roomID,
		"user_id":         userID,
	}
	for _, c := range evicted {
		c.SendEvent(&Event{Event: EventRoomLeft, Payload: payload})
	}
	g.registry.Broadcast(roomID, &Event{Event: EventRoomLeft, Payload: payload}, noExclude)
}

func (g *Gateway) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.storageTimeout)
}

func (g *Gateway) sendError(c *Client, frame *Frame, code, msg string) {
	c.SendEvent(&Event{Event: EventError, Ref: frame.Ref, Payload: ErrorPayload{
		Intent:  frame.Intent,
		Code:    code,
		Message: msg,
	}})
}

func (g *Gateway) sendPlatformError(c *Client, frame *Frame, err error) {
	code := "internal"
	msg := "operation failed"
	if perr := platformerrors.GetPlatformError(err); perr != nil {
		code = perr.Code()
		msg = perr.Message
	}
	g.log.Debug().Err(err).Str("intent", frame.Intent).Msg("intent failed")
	g.sendError(c, frame, code, msg)
}
