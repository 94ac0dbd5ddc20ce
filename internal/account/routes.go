package account

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vivido-app/vivido/internal/middleware"
)

// RegisterRoutes sets up the account routes on the given Echo instance.
//
// Login and register are rate-limited per IP to slow brute-force and
// credential-stuffing attempts: 10 per minute for login, 5 for register.
// The per-account lockout inside the engine is independent of this.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	api := e.Group("/api")

	api.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	api.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))

	api.GET("/accounts/:id", h.Get)
	api.DELETE("/accounts/:id", h.Delete)

	api.POST("/forgot-password", h.ForgotPassword, middleware.RateLimit(5, time.Minute))
	api.POST("/reset-password", h.ResetPassword, middleware.RateLimit(5, time.Minute))
}
