package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/parolevive/backend/internal/config"
	"github.com/parolevive/backend/internal/database"
	"github.com/parolevive/backend/internal/handlers"
	"github.com/parolevive/backend/internal/middleware"
	"github.com/parolevive/backend/internal/services"
	"github.com/parolevive/backend/internal/storage"
	"github.com/parolevive/backend/pkg/logger"
	"github.com/parolevive/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	fcmClient, err := services.NewFCMClient(context.Background(), cfg.FCM)
	if err != nil {
		log.Fatalf("fcm initialization failed: %v", err)
	}
	pushService := services.NewPushService(fcmClient, cfg.FCM.BroadcastTopic)
	defer pushService.Close()

	mailService := services.NewMailService(services.NewSMTPSender(cfg.SMTP), cfg.Server.FrontendURL)
	statsService := services.NewStatsService(db)

	authHandler := handlers.NewAuthHandler(db, pushService)
	usersHandler := handlers.NewUsersHandler(db, mailService, cfg.Invite)
	audiosHandler := handlers.NewAudiosHandler(db, storageClient, pushService)
	sermonsHandler := handlers.NewSermonsHandler(db, storageClient, pushService)
	eventsHandler := handlers.NewEventsHandler(db, storageClient, pushService)
	postsHandler := handlers.NewPostsHandler(db, storageClient, pushService)
	donationsHandler := handlers.NewDonationsHandler(db)
	liveHandler := handlers.NewLiveHandler(db, pushService)
	statsHandler := handlers.NewStatsHandler(statsService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.CORSOrigins))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/reset-password", authHandler.ResetPassword)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)
	authRoutes.Put("/fcm-token", authMiddleware.RequireAuth, authHandler.UpdateFCMToken)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth, middleware.AdminOnly)
	userRoutes.Post("/invite", usersHandler.Invite)
	userRoutes.Post("/:id/resend-invite", usersHandler.ResendInvite)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Put("/:id/role", usersHandler.UpdateRole)
	userRoutes.Delete("/:id", usersHandler.Delete)

	audioRoutes := api.Group("/audios")
	audioRoutes.Get("/", audiosHandler.List)
	audioRoutes.Get("/:id", audiosHandler.Get)
	audioRoutes.Post("/:id/play", audiosHandler.IncrementPlays)
	audioRoutes.Post("/:id/download", audiosHandler.IncrementDownloads)
	audioRoutes.Post("/", authMiddleware.RequireAuth, middleware.ModeratorOnly, audiosHandler.Create)
	audioRoutes.Put("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, audiosHandler.Update)
	audioRoutes.Delete("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, audiosHandler.Delete)

	sermonRoutes := api.Group("/sermons")
	sermonRoutes.Get("/", sermonsHandler.List)
	sermonRoutes.Get("/:id", sermonsHandler.Get)
	sermonRoutes.Post("/:id/download", sermonsHandler.IncrementDownloads)
	sermonRoutes.Post("/", authMiddleware.RequireAuth, middleware.ModeratorOnly, sermonsHandler.Create)
	sermonRoutes.Put("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, sermonsHandler.Update)
	sermonRoutes.Delete("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, sermonsHandler.Delete)

	eventRoutes := api.Group("/events")
	eventRoutes.Get("/", eventsHandler.List)
	eventRoutes.Get("/:id", eventsHandler.Get)
	eventRoutes.Post("/", authMiddleware.RequireAuth, middleware.ModeratorOnly, eventsHandler.Create)
	eventRoutes.Put("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, eventsHandler.Update)
	eventRoutes.Delete("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, eventsHandler.Delete)

	postRoutes := api.Group("/posts")
	postRoutes.Get("/", postsHandler.List)
	postRoutes.Get("/:id", postsHandler.Get)
	postRoutes.Post("/:id/like", postsHandler.IncrementLikes)
	postRoutes.Post("/:id/view", postsHandler.IncrementViews)
	postRoutes.Post("/", authMiddleware.RequireAuth, middleware.ModeratorOnly, postsHandler.Create)
	postRoutes.Put("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, postsHandler.Update)
	postRoutes.Delete("/:id", authMiddleware.RequireAuth, middleware.ModeratorOnly, postsHandler.Delete)

	donationRoutes := api.Group("/donations")
	donationRoutes.Post("/", authMiddleware.OptionalAuth, donationsHandler.Create)
	donationRoutes.Get("/mine", authMiddleware.RequireAuth, donationsHandler.Mine)
	donationRoutes.Get("/summary", authMiddleware.RequireAuth, middleware.AdminOnly, donationsHandler.Summary)
	donationRoutes.Get("/", authMiddleware.RequireAuth, middleware.AdminOnly, donationsHandler.List)
	donationRoutes.Delete("/:id", authMiddleware.RequireAuth, middleware.AdminOnly, donationsHandler.Delete)

	api.Get("/live", liveHandler.Get)
	api.Put("/live", authMiddleware.RequireAuth, middleware.AdminOnly, liveHandler.Update)

	api.Get("/admin/stats", authMiddleware.RequireAuth, middleware.AdminOnly, statsHandler.Overview)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
