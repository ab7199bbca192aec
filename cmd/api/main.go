package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/feedback-service/internal/api/http"
	"github.com/spec-kit/feedback-service/internal/api/http/handlers"
	"github.com/spec-kit/feedback-service/internal/channel"
	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/mail"
	"github.com/spec-kit/feedback-service/internal/observability"
	"github.com/spec-kit/feedback-service/internal/persistence"
	"github.com/spec-kit/feedback-service/internal/repository"
	"github.com/spec-kit/feedback-service/internal/service"
	"github.com/spec-kit/feedback-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.SenderAuthToken == "" {
		logger.Error("FEEDBACK_SENDER_AUTHTOKEN must be defined as a runtime environment variable")
	}
	if !cfg.Mailgun.Configured() {
		logger.Error("one or more MAILGUN_* runtime environment variables are not defined")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	feedbackRepo := repository.NewFeedbackRepository(pool)
	uploadRepo := repository.NewUploadRepository(pool)

	queue := channel.NewRedisQueue(redis.Client, cfg.Feedback.Queue, logger)
	mailgun := mail.NewMailgunClient(cfg.Mailgun, logger)

	uploadService := service.NewUploadService(feedbackRepo, uploadRepo, cfg.Feedback, logger)
	commentService := service.NewCommentService(feedbackRepo, queue, cfg.Feedback, logger)
	deliveryService := service.NewDeliveryService(feedbackRepo, uploadRepo, mailgun, cfg.Mailgun, logger)
	caretakerService := service.NewCaretakerService(feedbackRepo, queue, cfg.Caretaker, logger)

	deliveryWorker := worker.NewDeliveryWorker(queue, deliveryService, metrics, logger)
	go deliveryWorker.Run(ctx)

	// Some headroom over the upload cap so oversized uploads reach the
	// handler and fail with the wire code instead of a bare 413.
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Feedback.MaxUploadSize + 64*1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Upload:    handlers.NewUploadHandler(uploadService, cfg.Auth),
		Comment:   handlers.NewCommentHandler(commentService, cfg.Auth),
		Caretaker: handlers.NewCaretakerHandler(caretakerService),
		Delivery:  handlers.NewDeliveryHandler(deliveryService, cfg.Mailgun),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
