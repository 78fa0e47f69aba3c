package handlers

import (
	"time"

	"github.com/codeschool/accounts/internal/cache"
	"github.com/codeschool/accounts/internal/database"
	"github.com/codeschool/accounts/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	cache       *cache.Helper
	pluginCount int
}

func NewHealthHandler(c *cache.Helper, pluginCount int) *HealthHandler {
	return &HealthHandler{cache: c, pluginCount: pluginCount}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
		status = "degraded"
	}

	cacheStatus := "disabled"
	if h.cache.Available() {
		cacheStatus = "ok"
		if err := h.cache.Ping(c.UserContext()); err != nil {
			cacheStatus = "unhealthy: " + err.Error()
			status = "degraded"
		}
	}

	return c.JSON(dto.HealthResponse{
		Status:      status,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		DB:          dbStatus,
		Cache:       cacheStatus,
		PluginCount: h.pluginCount,
	})
}
