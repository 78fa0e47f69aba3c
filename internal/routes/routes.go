package routes

import (
	"time"

	"github.com/codeschool/accounts/internal/apps"
	"github.com/codeschool/accounts/internal/config"
	"github.com/codeschool/accounts/internal/handlers"
	"github.com/codeschool/accounts/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Users   *handlers.UserHandler
	Profile *handlers.ProfileHandler
	Health  *handlers.HealthHandler
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers, plugins []apps.Plugin) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Auth-specific rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	// Protected routes are registered one by one so the JWT middleware
	// never runs for the public auth endpoints.
	jwt := middleware.JWTProtected(cfg)
	api.Post("/auth/logout", jwt, h.Auth.Logout)

	api.Get("/profile", jwt, h.Profile.Me)
	api.Put("/profile", jwt, h.Profile.Update)
	api.Get("/profile/emails", jwt, h.Profile.ListEmails)
	api.Post("/profile/emails", jwt, h.Profile.AddEmail)

	api.Get("/users", jwt, h.Users.List)
	api.Get("/users/:id", jwt, h.Users.Get)
	api.Get("/users/:id/profile", jwt, h.Users.ViewProfile)
	api.Post("/users/:id/password", jwt, middleware.DetectStaff(db, cfg), h.Users.ChangePassword)
	api.Post("/users/:id/email", jwt, h.Users.ChangeEmail)

	admin := api.Group("/admin", middleware.AdminJWT(cfg), middleware.StaffRequired(db, cfg))
	admin.Get("/users/export", h.Users.Export)
	admin.Post("/users", h.Users.Create)
	admin.Put("/users/:id", h.Users.Update)
	admin.Delete("/users/:id", h.Users.Delete)

	protected := api.Group("/p", jwt)
	for _, p := range plugins {
		p.RegisterRoutes(protected, db, cfg)
		if ap, ok := p.(apps.AdminPlugin); ok {
			ap.RegisterAdminRoutes(admin, db, cfg)
		}
	}
}
