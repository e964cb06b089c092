package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/interfaces/httpserver/handlers"
)

func registerRealtimeRoutes(router gin.IRoutes, handler *handlers.WSHandler) {
	router.GET("/realtime/ws", handler.Connect)
}
