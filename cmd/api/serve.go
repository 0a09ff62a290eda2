package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/campusvoice/complaint-service/internal/api/http"
	"github.com/campusvoice/complaint-service/internal/api/http/handlers"
	"github.com/campusvoice/complaint-service/internal/auth"
	"github.com/campusvoice/complaint-service/internal/cache"
	"github.com/campusvoice/complaint-service/internal/events"
	"github.com/campusvoice/complaint-service/internal/notify"
	"github.com/campusvoice/complaint-service/internal/observability"
	"github.com/campusvoice/complaint-service/internal/persistence"
	"github.com/campusvoice/complaint-service/internal/repository"
	"github.com/campusvoice/complaint-service/internal/service"
	"github.com/campusvoice/complaint-service/internal/storage"
	"github.com/campusvoice/complaint-service/internal/tracking"
	"github.com/campusvoice/complaint-service/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pg, err := connectPostgres(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	complaintRepo := repository.NewComplaintRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	responseRepo := repository.NewResponseRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	sessionRepo := repository.NewChatbotSessionRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notifier := notify.New(cfg.Notification, logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, notifier, userRepo, logger, cfg.App))

	revocations := auth.NewRedisRevocationList(redis.ClientHandle())
	trackingCache := cache.NewRedisTrackingCache(redis.ClientHandle(), cfg.Cache.TrackingTTL())
	files := storage.NewLocalStore(cfg.Storage)
	if err := os.MkdirAll(files.Root(), 0o755); err != nil {
		return err
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Revocations:       revocations,
		Notifier:          notifier,
		Logger:            logger,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo:  complaintRepo,
		AttachmentRepo: attachmentRepo,
		ResponseRepo:   responseRepo,
		DepartmentRepo: departmentRepo,
		Generator:      tracking.NewGenerator(complaintRepo, logger),
		Files:          files,
		Cache:          trackingCache,
		Dispatcher:     dispatcher,
		Logger:         logger,
		MaxFiles:       cfg.Storage.MaxFiles,
	})
	responseService := service.NewResponseService(service.ResponseDependencies{
		ComplaintRepo: complaintRepo,
		ResponseRepo:  responseRepo,
		Cache:         trackingCache,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	adminService := service.NewAdminService(*cfg, service.AdminDependencies{
		DepartmentRepo: departmentRepo,
		UserRepo:       userRepo,
		ComplaintRepo:  complaintRepo,
		Cache:          trackingCache,
		Logger:         logger,
	})
	chatbotService := service.NewChatbotService(sessionRepo)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, authService.Revocations(), logger)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Storage.MaxFileSize())*cfg.Storage.MaxFiles + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, observability.NewMetrics(), cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Complaints:     handlers.NewComplaintsHandler(complaintService, responseService),
		Admin:          handlers.NewAdminHandler(adminService),
		Chatbot:        handlers.NewChatbotHandler(chatbotService),
		AuthMiddleware: authMiddleware,
		MediaDir:       files.Root(),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-shutdownSignal():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}
	return app.ShutdownWithTimeout(10 * time.Second)
}

func shutdownSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
