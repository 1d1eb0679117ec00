package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/derricker/meetai/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	webhookHandler *WebhookHandler
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, webhookHandler *WebhookHandler) *Router {
	return &Router{
		cfg:            cfg,
		webhookHandler: webhookHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	e.POST("/webhook", rt.webhookHandler.Handle)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
