package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/config"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/auth"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/realtime"
)

// WSHandler upgrades HTTP requests to WebSocket connections. Authentication
// happens at the handshake; an upgraded connection carries exactly the
// identity its token proved and never re-authenticates per frame.
type WSHandler struct {
	cfg       *config.Config
	gateway   *realtime.Gateway
	validator *auth.Validator
	upgrader  websocket.Upgrader
	log       zerolog.Logger
}

// NewWSHandler constructs the handler.
func NewWSHandler(cfg *config.Config, gateway *realtime.Gateway, validator *auth.Validator, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		cfg:       cfg,
		gateway:   gateway,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Cross-origin is enforced by the gateway in front of this
			// service, not per-connection here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With().Str("handler", "ws").Logger(),
	}
}

// Connect handles GET /v1/realtime/ws
// @Summary Open the realtime WebSocket
// @Description Upgrades the connection after validating the caller's token.
// @Tags Realtime
// @Param token query string false "Bearer token for clients that cannot set headers"
// @Success 101
// @Failure 401 {object} map[string]string
// @Router /v1/realtime/ws [get]
func (h *WSHandler) Connect(c *gin.Context) {
	identity, err := h.validator.ResolveRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := realtime.NewClient(
		uuid.New().String(),
		identity.UserID,
		identity.ProfileID,
		identity.Moderator,
		conn,
		realtime.ClientConfig{
			SendBufferSize: h.cfg.SendBufferSize,
			WriteWait:      h.cfg.WriteWait,
			PingInterval:   h.cfg.HeartbeatInterval,
			ReadDeadline:   h.cfg.ReadDeadline(),
			MaxFrameBytes:  h.cfg.MaxFrameBytes,
		},
		h.log,
	)

	// Blocks for the connection's lifetime.
	h.gateway.HandleConnection(c.Request.Context(), client)
}
