//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/config"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/message"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/auth"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/database"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/logger"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/queue"
	conversationrepo "github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/repository/conversation"
	messagerepo "github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/repository/message"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/interfaces/httpserver"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/realtime"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/webhook"
)

var messagingSet = wire.NewSet(
	conversationrepo.NewRepository,
	wire.Bind(new(conversation.Repository), new(*conversationrepo.Repository)),
	conversationrepo.NewParticipantRepository,
	wire.Bind(new(conversation.ParticipantRepository), new(*conversationrepo.ParticipantRepository)),
	messagerepo.NewRepository,
	wire.Bind(new(message.Repository), new(*messagerepo.Repository)),
	queue.NewPostgresQueue,
	wire.Bind(new(queue.TaskQueue), new(*queue.PostgresQueue)),
	wire.Bind(new(message.ModerationOutbox), new(*queue.PostgresQueue)),
	newWebhookService,
	wire.Bind(new(webhook.Service), new(*webhook.HTTPService)),
	newConversationService,
	newMessageService,
	realtime.NewRegistry,
	newGateway,
)

// BuildApplication demonstrates how to assemble the messaging service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		newAuthValidator,
		messagingSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func newAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

func newWebhookService(cfg *config.Config, log zerolog.Logger) *webhook.HTTPService {
	return webhook.NewHTTPService(cfg.ModerationWebhookURL, log)
}

func newConversationService(
	cfg *config.Config,
	repo conversation.Repository,
	participants conversation.ParticipantRepository,
	log zerolog.Logger,
) conversation.Service {
	return conversation.NewService(repo, participants, cfg.MaxGroupSize, log)
}

func newMessageService(
	cfg *config.Config,
	repo message.Repository,
	conversations conversation.Service,
	outbox message.ModerationOutbox,
	log zerolog.Logger,
) message.Service {
	return message.NewService(repo, conversations, outbox, cfg.HistoryPageSize, cfg.HistoryPageMax, log)
}

func newGateway(
	cfg *config.Config,
	registry *realtime.Registry,
	conversations conversation.Service,
	messages message.Service,
	log zerolog.Logger,
) *realtime.Gateway {
	return realtime.NewGateway(registry, conversations, messages, cfg.TypingExpiry, cfg.StorageTimeout, log)
}
