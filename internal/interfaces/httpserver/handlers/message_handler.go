package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/message"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/metrics"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/interfaces/httpserver/requests"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/interfaces/httpserver/responses"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/realtime"
)

// MessageHandler exposes HTTP entrypoints for message operations. REST
// mutations broadcast to the live room through the gateway so WebSocket
// subscribers stay consistent no matter which surface a client used.
type MessageHandler struct {
	service message.Service
	gateway *realtime.Gateway
	log     zerolog.Logger
}

// NewMessageHandler constructs the handler.
func NewMessageHandler(service message.Service, gateway *realtime.Gateway, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		service: service,
		gateway: gateway,
		log:     log.With().Str("handler", "message").Logger(),
	}
}

// Send handles POST /v1/conversations/:conversation_id/messages
// @Summary Send a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Param request body requests.SendMessageRequest true "Message"
// @Success 201 {object} map[string]any
// @Failure 400 {object} platformerrors.HTTPErrorResponse
// @Router /v1/conversations/{conversation_id}/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req requests.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), message.SendParams{
		ConversationID: c.Param("conversation_id"),
		SenderID:       identity.ProfileID,
		Content:        req.Content,
		Type:           message.Type(req.Type),
		ReplyToID:      req.ReplyToID,
		MediaURL:       req.MediaURL,
		MediaMetadata:  req.MediaMetadata,
	})
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	metrics.RecordMessage(string(msg.Type))
	h.gateway.BroadcastMessageNew(msg, nil)
	c.JSON(http.StatusCreated, responses.Message(msg))
}

// History handles GET /v1/conversations/:conversation_id/messages
// @Summary Page through conversation history
// @Description Newest first. Pass the returned cursor to fetch older pages.
// @Tags Messages
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Param cursor query string false "Opaque page cursor"
// @Param page_size query int false "Page size"
// @Success 200 {object} map[string]any
// @Router /v1/conversations/{conversation_id}/messages [get]
func (h *MessageHandler) History(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	pageSize := 0
	if raw := c.Query("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			pageSize = parsed
		}
	}

	page, err := h.service.ListHistory(c.Request.Context(), c.Param("conversation_id"), identity.ProfileID, c.Query("cursor"), pageSize)
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, responses.MessagePage(page))
}

// MarkRead handles POST /v1/conversations/:conversation_id/read
// @Summary Mark messages read up to a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Param request body requests.MarkReadRequest true "Watermark"
// @Success 200 {object} map[string]any
// @Router /v1/conversations/{conversation_id}/read [post]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req requests.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.service.MarkRead(c.Request.Context(), c.Param("conversation_id"), identity.ProfileID, req.UpToMessageID)
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	h.gateway.Registry().Broadcast(state.ConversationPublicID, &realtime.Event{
		Event: realtime.EventReadReceipt,
		Payload: map[string]any{
			"conversation_id":  state.ConversationPublicID,
			"user_id":          state.UserID,
			"up_to_message_id": state.UpToMessageID,
		},
	}, nil)
	c.JSON(http.StatusOK, responses.ReadState(state))
}

// Edit handles PUT /v1/messages/:message_id
// @Summary Edit a message (sender only)
// @Tags Messages
// @Accept json
// @Produce json
// @Param message_id path string true "Message ID"
// @Param request body requests.EditMessageRequest true "New content"
// @Success 200 {object} map[string]any
// @Router /v1/messages/{message_id} [put]
func (h *MessageHandler) Edit(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req requests.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.service.Edit(c.Request.Context(), c.Param("message_id"), identity.ProfileID, req.Content)
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	h.gateway.Registry().Broadcast(msg.ConversationPublicID, &realtime.Event{
		Event:   realtime.EventMessageEdited,
		Payload: realtime.MessagePayload(msg),
	}, nil)
	c.JSON(http.StatusOK, responses.Message(msg))
}

// Delete handles DELETE /v1/messages/:message_id
// @Summary Soft-delete a message (sender or moderator)
// @Description The message stays as a redacted placeholder; reply previews
// pointing at it render the placeholder too.
// @Tags Messages
// @Produce json
// @Param message_id path string true "Message ID"
// @Success 200 {object} map[string]any
// @Router /v1/messages/{message_id} [delete]
func (h *MessageHandler) Delete(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	msg, err := h.service.SoftDelete(c.Request.Context(), c.Param("message_id"), message.Actor{
		UserID:    identity.ProfileID,
		Moderator: identity.Moderator,
	})
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	h.gateway.Registry().Broadcast(msg.ConversationPublicID, &realtime.Event{
		Event:   realtime.EventMessageDeleted,
		Payload: realtime.MessagePayload(msg),
	}, nil)
	c.JSON(http.StatusOK, responses.Message(msg))
}

// Forward handles POST /v1/messages/:message_id/forward
// @Summary Forward a message to another conversation
// @Tags Messages
// @Accept json
// @Produce json
// @Param message_id path string true "Message ID"
// @Param request body requests.ForwardMessageRequest true "Target"
// @Success 201 {object} map[string]any
// @Router /v1/messages/{message_id}/forward [post]
func (h *MessageHandler) Forward(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req requests.ForwardMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.service.Forward(c.Request.Context(), c.Param("message_id"), req.TargetConversationID, identity.ProfileID)
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	metrics.RecordMessage(string(msg.Type))
	h.gateway.BroadcastMessageNew(msg, nil)
	c.JSON(http.StatusCreated, responses.Message(msg))
}

// React handles POST /v1/messages/:message_id/reactions
// @Summary Add a reaction
// @Tags Messages
// @Accept json
// @Produce json
// @Param message_id path string true "Message ID"
// @Param request body requests.ReactionRequest true "Emoji"
// @Success 200 {object} map[string]any
// @Router /v1/messages/{message_id}/reactions [post]
func (h *MessageHandler) React(c *gin.Context) {
	h.updateReaction(c, true)
}

// Unreact handles DELETE /v1/messages/:message_id/reactions/:emoji
// @Summary Remove a reaction
// @Tags Messages
// @Produce json
// @Param message_id path string true "Message ID"
// @Param emoji path string true "Emoji"
// @Success 200 {object} map[string]any
// @Router /v1/messages/{message_id}/reactions/{emoji} [delete]
func (h *MessageHandler) Unreact(c *gin.Context) {
	h.updateReaction(c, false)
}

func (h *MessageHandler) updateReaction(c *gin.Context, add bool) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var (
		msg *message.Message
		err error
	)
	if add {
		var req requests.ReactionRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
			return
		}
		msg, err = h.service.React(c.Request.Context(), c.Param("message_id"), identity.ProfileID, req.Emoji)
	} else {
		msg, err = h.service.Unreact(c.Request.Context(), c.Param("message_id"), identity.ProfileID, c.Param("emoji"))
	}
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	h.gateway.Registry().Broadcast(msg.ConversationPublicID, &realtime.Event{
		Event: realtime.EventReactionUpdated,
		Payload: map[string]any{
			"conversation_id": msg.ConversationPublicID,
			"message_id":      msg.PublicID,
			"reactions":       realtime.ReactionsPayload(msg.Reactions),
		},
	}, nil)
	c.JSON(http.StatusOK, responses.Message(msg))
}
