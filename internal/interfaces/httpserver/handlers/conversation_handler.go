package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/auth"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/interfaces/httpserver/requests"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/interfaces/httpserver/responses"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/realtime"
)

// ConversationHandler exposes HTTP entrypoints for conversation lifecycle.
type ConversationHandler struct {
	service conversation.Service
	gateway *realtime.Gateway
	log     zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(service conversation.Service, gateway *realtime.Gateway, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		gateway: gateway,
		log:     log.With().Str("handler", "conversation").Logger(),
	}
}

// CreateDirect handles POST /v1/conversations/direct
// @Summary Open the direct conversation with a peer
// @Description Returns the existing active direct conversation or creates it.
// @Tags Conversations
// @Accept json
// @Produce json
// @Param request body requests.CreateDirectRequest true "Peer"
// @Success 200 {object} map[string]any
// @Failure 400 {object} platformerrors.HTTPErrorResponse
// @Router /v1/conversations/direct [post]
func (h *ConversationHandler) CreateDirect(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req requests.CreateDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.service.GetOrCreateDirect(c.Request.Context(), identity.ProfileID, req.PeerID)
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, responses.Conversation(conv))
}

// CreateGroup handles POST /v1/conversations/group
// @Summary Create a group conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Param request body requests.CreateGroupRequest true "Group"
// @Success 201 {object} map[string]any
// @Router /v1/conversations/group [post]
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req requests.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.service.CreateGroup(c.Request.Context(), req.Name, identity.ProfileID, req.MemberIDs)
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	h.gateway.BroadcastConversationCreated(conv)
	c.JSON(http.StatusCreated, responses.Conversation(conv))
}

// CreateContentLinked handles POST /v1/conversations/content
// @Summary Open the conversation rooted in a posting
// @Tags Conversations
// @Accept json
// @Produce json
// @Param request body requests.CreateContentLinkedRequest true "Content"
// @Success 200 {object} map[string]any
// @Router /v1/conversations/content [post]
func (h *ConversationHandler) CreateContentLinked(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req requests.CreateContentLinkedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.service.GetOrCreateContentLinked(c.Request.Context(), req.ContentID, identity.ProfileID)
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, responses.Conversation(conv))
}

// List handles GET /v1/conversations
// @Summary List the caller's conversations
// @Description Active conversations with unread counts, newest activity first.
// @Tags Conversations
// @Produce json
// @Success 200 {object} map[string]any
// @Router /v1/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	summaries, err := h.service.ListForUser(c.Request.Context(), identity.ProfileID)
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, responses.ConversationList(summaries))
}

// Get handles GET /v1/conversations/:conversation_id
// @Summary Get one conversation
// @Tags Conversations
// @Produce json
// @Param conversation_id path string true "Conversation ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} platformerrors.HTTPErrorResponse
// @Router /v1/conversations/{conversation_id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	conv, err := h.service.Get(c.Request.Context(), c.Param("conversation_id"), identity.ProfileID)
	if err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, responses.Conversation(conv))
}

// AddParticipant handles POST /v1/conversations/:conversation_id/participants
// @Summary Add a member (admin only)
// @Tags Conversations
// @Accept json
// @Param conversation_id path string true "Conversation ID"
// @Param request body requests.AddParticipantRequest true "Member"
// @Success 204
// @Router /v1/conversations/{conversation_id}/participants [post]
func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req requests.AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.AddParticipant(c.Request.Context(), c.Param("conversation_id"), identity.ProfileID, req.UserID); err != nil {
		responses.HandleError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveParticipant handles DELETE /v1/conversations/:conversation_id/participants/:user_id
// @Summary Remove a member (admin only)
// @Tags Conversations
// @Param conversation_id path string true "Conversation ID"
// @Param user_id path string true "User ID"
// @Success 204
// @Router /v1/conversations/{conversation_id}/participants/{user_id} [delete]
func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	if err := h.service.RemoveParticipant(c.Request.Context(), c.Param("conversation_id"), identity.ProfileID, c.Param("user_id")); err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	// Revoked membership ends live delivery immediately, not at next reconnect.
	h.gateway.EvictFromRoom(c.Param("conversation_id"), c.Param("user_id"))
	c.Status(http.StatusNoContent)
}

// Leave handles POST /v1/conversations/:conversation_id/leave
// @Summary Leave the conversation
// @Tags Conversations
// @Param conversation_id path string true "Conversation ID"
// @Success 204
// @Router /v1/conversations/{conversation_id}/leave [post]
func (h *ConversationHandler) Leave(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	if err := h.service.Leave(c.Request.Context(), c.Param("conversation_id"), identity.ProfileID); err != nil {
		responses.HandleError(c, h.log, err)
		return
	}

	h.gateway.EvictFromRoom(c.Param("conversation_id"), identity.ProfileID)
	c.Status(http.StatusNoContent)
}

// Mute handles PUT /v1/conversations/:conversation_id/mute
// @Summary Mute or unmute notifications for the caller
// @Tags Conversations
// @Accept json
// @Param conversation_id path string true "Conversation ID"
// @Param request body requests.MuteRequest true "Mute flag"
// @Success 204
// @Router /v1/conversations/{conversation_id}/mute [put]
func (h *ConversationHandler) Mute(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req requests.MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetMuted(c.Request.Context(), c.Param("conversation_id"), identity.ProfileID, req.Muted); err != nil {
		responses.HandleError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Rename handles PUT /v1/conversations/:conversation_id/name
// @Summary Rename a group conversation (admin only)
// @Tags Conversations
// @Accept json
// @Param conversation_id path string true "Conversation ID"
// @Param request body requests.RenameGroupRequest true "Name"
// @Success 204
// @Router /v1/conversations/{conversation_id}/name [put]
func (h *ConversationHandler) Rename(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req requests.RenameGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.RenameGroup(c.Request.Context(), c.Param("conversation_id"), identity.ProfileID, req.Name); err != nil {
		responses.HandleError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Archive handles POST /v1/conversations/:conversation_id/archive
// @Summary Archive the conversation
// @Description Archiving frees the conversation's dedup key; a later direct
// or content-linked request between the same parties creates a fresh one.
// @Tags Conversations
// @Param conversation_id path string true "Conversation ID"
// @Success 204
// @Router /v1/conversations/{conversation_id}/archive [post]
func (h *ConversationHandler) Archive(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	// Archiving requires membership; moderators may archive any conversation.
	if !identity.Moderator {
		if _, _, err := h.service.ActiveParticipant(c.Request.Context(), c.Param("conversation_id"), identity.ProfileID); err != nil {
			responses.HandleError(c, h.log, err)
			return
		}
	}

	if err := h.service.Archive(c.Request.Context(), c.Param("conversation_id")); err != nil {
		responses.HandleError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// requireIdentity pulls the authenticated identity or aborts with 401.
func requireIdentity(c *gin.Context) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFrom(c)
	if !ok || identity == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return nil, false
	}
	return identity, true
}
