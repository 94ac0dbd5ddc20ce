package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vivido-app/vivido/internal/account"
)

// RegisterRoutes sets up all application routes. This is the single place
// where routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for container orchestration. Verifies that both
	// backing stores answer, not just that the process is up.
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := a.DB.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		}
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "redis unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	account.RegisterRoutes(e, a.accounts)
}
