package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/codeschool/accounts/internal/apps"
	"github.com/codeschool/accounts/internal/apps/academic"
	"github.com/codeschool/accounts/internal/auth"
	"github.com/codeschool/accounts/internal/cache"
	"github.com/codeschool/accounts/internal/config"
	"github.com/codeschool/accounts/internal/database"
	"github.com/codeschool/accounts/internal/dto"
	"github.com/codeschool/accounts/internal/events"
	"github.com/codeschool/accounts/internal/handlers"
	"github.com/codeschool/accounts/internal/logging"
	"github.com/codeschool/accounts/internal/middleware"
	"github.com/codeschool/accounts/internal/routes"
	"github.com/codeschool/accounts/internal/services"
	"github.com/codeschool/accounts/internal/validator"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Structured logging (JSON to stdout)
	logger := logging.Setup(cfg.Environment)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBDriver != "sqlite" && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	settings, err := auth.NewSettings(cfg.AuthBackends)
	if err != nil {
		slog.Error("invalid AUTH_BACKENDS", "error", err)
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	v := validator.New()
	plugins := []apps.Plugin{
		academic.New(v),
	}

	if err := migrate(cfg, plugins); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	if cfg.CatalogSeedPath != "" {
		n, err := academic.SeedFromFile(context.Background(), database.DB, cfg.CatalogSeedPath)
		if err != nil {
			slog.Error("catalogue seed failed", "path", cfg.CatalogSeedPath, "error", err)
			os.Exit(1)
		}
		slog.Info("academic catalogue seeded", "path", cfg.CatalogSeedPath, "inserted", n)
	}

	// Database log handler (ERROR+ async batch)
	logStore := logging.AttachStore(database.DB)

	// Log cleanup
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, logging.DefaultRetention, cleanupDone)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, directory cache disabled", "error", err)
		redisClient = nil
	}
	userCache := cache.NewHelper(redisClient, "accounts")

	publisher, err := events.NewPublisher(cfg.KafkaBrokers, logger)
	if err != nil {
		slog.Error("event publisher init failed", "error", err)
		os.Exit(1)
	}
	if len(cfg.KafkaBrokers) == 0 {
		if err := events.RunAuditLog(ctx, publisher, logger); err != nil {
			slog.Error("account audit log failed to start", "error", err)
		}
	}

	// Services
	accountService := services.NewAccountService(database.DB, cfg, publisher, userCache)
	authService := services.NewAuthService(database.DB, cfg, accountService, settings)
	exportService := services.NewExportService(accountService)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestContext())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, database.DB, routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService, v),
		Users:   handlers.NewUserHandler(accountService, exportService, v),
		Profile: handlers.NewProfileHandler(accountService, v),
		Health:  handlers.NewHealthHandler(userCache, len(plugins)),
	}, plugins)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "auth_backends", settings.Names())
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	cancel()
	if err := publisher.Close(); err != nil {
		slog.Error("event publisher close error", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	close(cleanupDone)
	logStore.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

// migrate applies the embedded SQL migrations when MIGRATIONS is set and
// falls back to AutoMigrate otherwise.
func migrate(cfg *config.Config, plugins []apps.Plugin) error {
	if cfg.Migrations {
		if cfg.DBDriver == "sqlite" {
			return errors.New("MIGRATIONS=true requires the postgres driver")
		}
		return database.RunSQLMigrations(cfg)
	}

	if err := database.MigrateShared(database.DB); err != nil {
		return err
	}
	for _, p := range plugins {
		if models := p.Models(); len(models) > 0 {
			if err := database.MigrateModels(database.DB, models); err != nil {
				return err
			}
			slog.Info("plugin migrated", "plugin", p.ID(), "models", len(models))
		}
	}
	return nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.ErrorContext(c.UserContext(), "unhandled server error",
			"action", c.Method()+" "+c.Path(),
			"error", err.Error(),
		)
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Message: message})
}
