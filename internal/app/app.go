// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// Echo instance) and wires the account service together.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/vivido-app/vivido/internal/account"
	"github.com/vivido-app/vivido/internal/apperror"
	"github.com/vivido-app/vivido/internal/config"
	"github.com/vivido-app/vivido/internal/middleware"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool.
	DB *sql.DB

	// Redis is the Redis client backing the reset-token store.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	accounts *account.Handler
}

// New creates a new App instance with the given dependencies, configures the
// Echo server with global middleware and error handling, and wires the
// account service.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	repo := account.NewRepository(db)
	resets := account.NewResetTokenStore(rdb)
	service := account.NewService(repo, resets, cfg.Auth, cfg.BaseURL)

	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Echo:     e,
		accounts: account.NewHandler(service),
	}

	// Resolve client IPs through the reverse proxy so per-IP rate limiting
	// sees real addresses.
	middleware.TrustedProxies(e, cfg.TrustedProxies)

	// Register global middleware in order of execution: recovery outermost
	// so it catches panics from everything else.
	e.Use(middleware.Recovery())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.SecurityHeaders())
	if len(cfg.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
		}))
	}

	// Register the custom error handler that maps AppErrors to responses.
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to the {success, message} envelope the UI consumes, logging the
// internal cause for 5xx errors without leaking it to the client.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "An unexpected error occurred. Please try again."
	accountNotFound := false

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message
		accountNotFound = appErr.Type == apperror.TypeAccountNotFound

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	case errors.As(err, &echoErr):
		// Echo's built-in errors (e.g., 404 from the router).
		code = echoErr.Code
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	default:
		// Truly unexpected error -- log it, report generically.
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	body := map[string]any{
		"success": false,
		"message": message,
	}
	if accountNotFound {
		body["account_not_found"] = true
	}
	c.JSON(code, body)
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Vivido server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
