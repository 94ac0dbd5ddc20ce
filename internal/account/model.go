// Package account handles registration, credential authentication with
// progressive lockout, and account lifecycle for Vivido. The authentication
// engine here is consumed by the UI layer through the JSON contracts in
// handler.go; the UI itself lives outside this repository.
//
// This is the CORE of the application.
package account

import (
	"time"
)

// Account is a registered user's credential record. This is the domain model
// used throughout the application. Database scanning and JSON marshaling use
// this struct directly.
type Account struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	PasswordDigest string     `json:"-"` // Never expose or log.
	IsActive       bool       `json:"is_active"`
	FailedAttempts int        `json:"-"`
	LockedUntil    *time.Time `json:"-"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Locked reports whether the account is locked as of the given instant.
// Lock expiry is discovered lazily by the engine; this helper only reads.
func (a *Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the data submitted by the login form. Identifier may be
// a username or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
	Password   string `json:"password" form:"password"`
}

// RegisterRequest holds the data submitted by the registration form.
type RegisterRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ForgotPasswordRequest asks for a reset link to be issued.
type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

// ResetPasswordRequest completes a reset with the emailed token.
type ResetPasswordRequest struct {
	Token    string `json:"token" form:"token"`
	Password string `json:"password" form:"password"`
}

// --- Service input/output ---

// LoginInput is the input for an authentication attempt.
type LoginInput struct {
	Identifier string
	Password   string
}

// RegisterInput is the validated input for creating a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned on successful authentication. LastLogin is the
// timestamp recorded by this attempt.
type LoginResult struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	LastLogin time.Time `json:"last_login"`
}
