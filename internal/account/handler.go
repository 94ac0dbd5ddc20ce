package account

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vivido-app/vivido/internal/apperror"
)

// Handler handles the JSON contracts consumed by the UI layer. Handlers are
// thin: they bind the request, call the service, and shape the envelope.
// No business logic lives here.
type Handler struct {
	service Service
}

// NewHandler creates a new account handler with the given service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// envelope is the response shape shared by every account endpoint:
// {success, message} plus the optional identity fields on login success and
// the account_not_found signal the UI uses to offer registration.
type envelope struct {
	Success         bool       `json:"success"`
	Message         string     `json:"message"`
	UserID          int64      `json:"user_id,omitempty"`
	Username        string     `json:"username,omitempty"`
	Email           string     `json:"email,omitempty"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	AccountNotFound bool       `json:"account_not_found,omitempty"`
	Account         *Account   `json:"account,omitempty"`
}

// Login processes an authentication attempt (POST /api/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	result, err := h.service.Login(c.Request().Context(), LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusOK, envelope{
		Success:   true,
		Message:   "Login successful",
		UserID:    result.UserID,
		Username:  result.Username,
		Email:     result.Email,
		LastLogin: &result.LastLogin,
	})
}

// Register processes a registration submission (POST /api/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	_, err := h.service.Register(c.Request().Context(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusCreated, envelope{
		Success: true,
		Message: "User registered successfully",
	})
}

// Delete removes an account (DELETE /api/accounts/:id). Idempotent: deleting
// an id that is already gone still reports success.
func (h *Handler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperror.NewBadRequest("User ID is required")
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "Account deleted successfully",
	})
}

// Get returns the account profile for the dashboard (GET /api/accounts/:id).
func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperror.NewBadRequest("User ID is required")
	}

	acct, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "OK",
		Account: acct,
	})
}

// ForgotPassword issues a mock-delivered reset link (POST /api/forgot-password).
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if err := h.service.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "Password reset link sent to your email",
	})
}

// ResetPassword completes a reset with an emailed token (POST /api/reset-password).
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if err := h.service.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return failure(c, err)
	}

	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "Password has been reset",
	})
}

// failure renders a service error as the {success:false} envelope. Store and
// other internal errors are handed to the central error handler instead, so
// they get logged with their cause and the client sees only a generic
// message.
func failure(c echo.Context, err error) error {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code >= http.StatusInternalServerError {
		return err
	}

	return c.JSON(appErr.Code, envelope{
		Success:         false,
		Message:         appErr.Message,
		AccountNotFound: appErr.Type == apperror.TypeAccountNotFound,
	})
}
