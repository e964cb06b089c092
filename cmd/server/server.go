package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/config"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/conversation"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/domain/message"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/auth"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/database"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/logger"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/metrics"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/observability"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/queue"
	conversationrepo "github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/repository/conversation"
	messagerepo "github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/repository/message"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/interfaces/httpserver"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/realtime"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/webhook"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/worker"
)

// @title Messaging API
// @version 1.0
// @description Realtime messaging for the alumni network: conversations, messages, presence and a WebSocket gateway.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	conversationRepository := conversationrepo.NewRepository(db)
	participantRepository := conversationrepo.NewParticipantRepository(db)
	messageRepository := messagerepo.NewRepository(db)

	conversationService := conversation.NewService(conversationRepository, participantRepository, cfg.MaxGroupSize, log)

	// Moderation event infrastructure: durable outbox drained by workers
	// into the moderation webhook.
	taskQueue := queue.NewPostgresQueue(db, log)
	notifier := webhook.NewHTTPService(cfg.ModerationWebhookURL, log)

	messageService := message.NewService(
		messageRepository,
		conversationService,
		taskQueue,
		cfg.HistoryPageSize,
		cfg.HistoryPageMax,
		log,
	)

	registry := realtime.NewRegistry(log)
	gateway := realtime.NewGateway(
		registry,
		conversationService,
		messageService,
		cfg.TypingExpiry,
		cfg.StorageTimeout,
		log,
	)

	workerPool := worker.NewPool(
		taskQueue,
		notifier,
		worker.Config{
			WorkerCount:  cfg.BackgroundWorkerCount,
			TaskTimeout:  cfg.BackgroundTaskTimeout,
			PollInterval: cfg.WorkerPollInterval,
		},
		log,
	)

	workerPool.Start(ctx)
	defer func() {
		log.Info().Msg("stopping worker pool")
		workerPool.Stop()
	}()

	go reportQueueDepth(ctx, workerPool, log)

	httpServer := httpserver.New(cfg, log, conversationService, messageService, gateway, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// reportQueueDepth samples the moderation outbox depth for the gauge.
func reportQueueDepth(ctx context.Context, pool *worker.Pool, log zerolog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := pool.GetQueueDepth(ctx)
			if err != nil {
				log.Debug().Err(err).Msg("sample queue depth")
				continue
			}
			metrics.SetQueueDepth(depth)
		}
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
