package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anjiri1684/scholarlink/cache"
	config "github.com/anjiri1684/scholarlink/configs"
	"github.com/anjiri1684/scholarlink/database"
	"github.com/anjiri1684/scholarlink/handlers"
	"github.com/anjiri1684/scholarlink/jobs"
	"github.com/anjiri1684/scholarlink/logging"
	"github.com/anjiri1684/scholarlink/middleware"
	"github.com/anjiri1684/scholarlink/notifications"
	"github.com/anjiri1684/scholarlink/routes"
	"github.com/anjiri1684/scholarlink/services"
	"github.com/anjiri1684/scholarlink/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info", "json", os.Stderr)
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg, logger)
	defer store.Close()

	var tutorCache cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, tutor listings will not be cached")
		} else {
			defer rc.Close()
			tutorCache = rc
		}
	}

	hub := websocket.NewHub(logger.With().Str("component", "hub").Logger())
	go hub.Run(ctx)

	var sender services.EmailSender
	if cfg.EmailEnabled() {
		sender = notifications.NewBrevoService(cfg.BrevoAPIKey, cfg.EmailSender, cfg.EmailSenderName, cfg.BrevoURL, logger)
	} else {
		logger.Warn().Msg("email delivery disabled, BREVO_API_KEY, EMAIL_SENDER or EMAIL_SENDER_NAME missing")
	}

	svc := services.New(store, tutorCache, hub, services.Options{
		BcryptCost:   cfg.BcryptCost,
		Subjects:     cfg.Subjects,
		CacheTTL:     cfg.TutorCacheTTL,
		EmailEnabled: sender != nil,
	}, logger)

	scheduler := cron.New()
	err = jobs.Schedule(ctx, scheduler, jobs.Config{
		Reminders:   svc.Coordinator,
		Emails:      svc.Notifications,
		Sender:      sender,
		BatchSize:   cfg.EmailBatchSize,
		MaxAttempts: cfg.EmailMaxAttempts,
	}, logger.With().Str("component", "jobs").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule jobs")
	}
	scheduler.Start()
	logger.Info().Msg("cron jobs scheduled")

	app := fiber.New(fiber.Config{
		AppName:       "ScholarLink",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				logger.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("unhandled error")
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(logger.With().Str("component", "http").Logger()))

	h := handlers.New(svc, hub, store, handlers.Config{
		JWTSecret:     cfg.JWTSecret,
		TokenTTL:      cfg.TokenTTL,
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
	}, logger.With().Str("component", "handlers").Logger())
	routes.Setup(app, h, cfg.JWTSecret)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		<-scheduler.Stop().Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server is running")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server failed to start")
	}
}

// openStore connects to postgres, or falls back to the in-memory store
// when no DATABASE_URL is configured.
func openStore(cfg *config.Settings, logger zerolog.Logger) database.Store {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory store; data is lost on restart")
		return database.NewMemoryStore()
	}
	db, err := database.ConnectDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	return database.NewGormStore(db)
}
