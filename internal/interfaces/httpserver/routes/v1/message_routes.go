package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/interfaces/httpserver/handlers"
)

func registerMessageRoutes(router gin.IRoutes, handler *handlers.MessageHandler) {
	router.POST("/conversations/:conversation_id/messages", handler.Send)
	router.GET("/conversations/:conversation_id/messages", handler.History)
	router.POST("/conversations/:conversation_id/read", handler.MarkRead)
	router.PUT("/messages/:message_id", handler.Edit)
	router.DELETE("/messages/:message_id", handler.Delete)
	router.POST("/messages/:message_id/forward", handler.Forward)
	router.POST("/messages/:message_id/reactions", handler.React)
	router.DELETE("/messages/:message_id/reactions/:emoji", handler.Unreact)
}
