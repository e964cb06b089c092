package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/interfaces/httpserver/handlers"
)

func registerConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.POST("/conversations/direct", handler.CreateDirect)
	router.POST("/conversations/group", handler.CreateGroup)
	router.POST("/conversations/content", handler.CreateContentLinked)
	router.GET("/conversations", handler.List)
	router.GET("/conversations/:conversation_id", handler.Get)
	router.POST("/conversations/:conversation_id/participants", handler.AddParticipant)
	router.DELETE("/conversations/:conversation_id/participants/:user_id", handler.RemoveParticipant)
	router.POST("/conversations/:conversation_id/leave", handler.Leave)
	router.PUT("/conversations/:conversation_id/mute", handler.Mute)
	router.PUT("/conversations/:conversation_id/name", handler.Rename)
	router.POST("/conversations/:conversation_id/archive", handler.Archive)
}
