package handlers

import (
	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/config"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/message"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/auth"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/realtime"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Conversation *ConversationHandler
	Message      *MessageHandler
	WS           *WSHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(
	cfg *config.Config,
	conversations conversation.Service,
	messages message.Service,
	gateway *realtime.Gateway,
	validator *auth.Validator,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Conversation: NewConversationHandler(conversations, gateway, log),
		Message:      NewMessageHandler(messages, gateway, log),
		WS:           NewWSHandler(cfg, gateway, validator, log),
	}
}
