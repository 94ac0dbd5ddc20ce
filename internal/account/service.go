package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vivido-app/vivido/internal/apperror"
	"github.com/vivido-app/vivido/internal/config"
)

// Service defines the business logic contract for accounts. Handlers call
// these methods -- they never touch the repository directly. Every failure
// comes back as a tagged *apperror.AppError; nothing in here panics on bad
// input or bad stored data.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Register(ctx context.Context, input RegisterInput) (*Account, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*Account, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

// accountService implements Service. The lockout thresholds come from
// configuration (defaults: 5 attempts, 15 minutes).
type accountService struct {
	repo    Repository
	resets  *ResetTokenStore
	cfg     config.AuthConfig
	baseURL string
}

// NewService creates the account service with the given dependencies.
func NewService(repo Repository, resets *ResetTokenStore, cfg config.AuthConfig, baseURL string) Service {
	return &accountService{
		repo:    repo,
		resets:  resets,
		cfg:     cfg,
		baseURL: baseURL,
	}
}

// Login runs the authentication state machine for one attempt:
// lookup -> active check -> lock check (with lazy unlock) -> verify ->
// counter/lock update or last-login update. The whole sequence runs inside
// one transaction so the row is locked and two concurrent attempts on the
// same account cannot both read the same counter.
//
// Terminal failures (wrong password, lockout, inactive...) COMMIT, because
// they carry counter mutations that must stick. Only storage errors roll
// back, in which case the in-memory state is discarded and the caller must
// retry the whole attempt.
func (s *accountService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	identifier := strings.ToLower(strings.TrimSpace(input.Identifier))
	if identifier == "" || input.Password == "" {
		// Fail fast, no store access.
		return nil, apperror.NewMissingCredentials("Email and password are required")
	}

	var result *LoginResult
	var outcome *apperror.AppError

	err := s.repo.InTx(ctx, func(r Repository) error {
		acct, err := r.FindByIdentifier(ctx, identifier)
		if err != nil {
			if isNotFound(err) {
				outcome = apperror.NewAccountNotFound(
					"Email or username does not exist. Please create an account.")
				return nil
			}
			return err
		}

		if !acct.IsActive {
			outcome = apperror.NewAccountInactive("Account is inactive. Contact support.")
			return nil
		}

		now := time.Now().UTC()

		if acct.LockedUntil != nil {
			if acct.Locked(now) {
				// Refuse before verifying, so a locked account never
				// leaks whether the supplied password was correct.
				remaining := int(acct.LockedUntil.Sub(now).Minutes())
				outcome = apperror.NewAccountLocked(
					fmt.Sprintf("Account locked. Try again in %d minutes", remaining))
				return nil
			}

			// Lock expired: clear it and continue with a clean counter.
			if err := r.ClearExpiredLock(ctx, acct.ID); err != nil {
				return err
			}
			acct.FailedAttempts = 0
			acct.LockedUntil = nil
		}

		match, err := VerifyPassword(input.Password, acct.PasswordDigest)
		if err != nil {
			// Malformed digest at rest. Authentication fails; the
			// account record is left untouched.
			outcome = apperror.NewVerificationError(err)
			return nil
		}

		if !match {
			attempts := acct.FailedAttempts + 1
			if attempts >= s.cfg.MaxAttempts {
				until := now.Add(s.cfg.LockoutDuration)
				if err := r.SaveLoginFailure(ctx, acct.ID, attempts, &until); err != nil {
					return err
				}
				outcome = apperror.NewAccountLockedNow(fmt.Sprintf(
					"Too many failed login attempts. Account locked for %d minutes.",
					int(s.cfg.LockoutDuration.Minutes())))
				return nil
			}

			if err := r.SaveLoginFailure(ctx, acct.ID, attempts, nil); err != nil {
				return err
			}
			outcome = apperror.NewWrongPassword(fmt.Sprintf(
				"Incorrect password. %d attempts remaining.", s.cfg.MaxAttempts-attempts))
			return nil
		}

		if err := r.SaveLoginSuccess(ctx, acct.ID, now); err != nil {
			return err
		}

		result = &LoginResult{
			UserID:    acct.ID,
			Username:  acct.Username,
			Email:     acct.Email,
			LastLogin: now,
		}
		return nil
	})
	if err != nil {
		slog.Error("login attempt aborted by store error", slog.Any("error", err))
		return nil, apperror.NewStoreError(err)
	}

	if outcome != nil {
		slog.Warn("login failed",
			slog.String("reason", outcome.Type),
			slog.String("identifier", identifier),
		)
		return nil, outcome
	}

	slog.Info("user logged in",
		slog.Int64("user_id", result.UserID),
		slog.String("username", result.Username),
	)

	return result, nil
}

// Register creates a new account. Validation runs in a fixed order and the
// first failing rule wins with its specific message. Uniqueness is
// pre-checked against the store, and the unique constraints catch the race
// where two concurrent registrations pass the pre-check with the same
// identifier.
func (s *accountService) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	password := input.Password

	if !ValidUsername(username) {
		return nil, apperror.NewValidationFailed(
			"Username must be 3-30 characters using letters, digits, or underscore")
	}
	if !ValidEmail(email) {
		return nil, apperror.NewValidationFailed("Invalid email format")
	}
	if password == "" {
		return nil, apperror.NewValidationFailed("Password cannot be empty")
	}
	if !StrongPassword(password) {
		return nil, apperror.NewValidationFailed("Password too weak")
	}

	// Pre-check uniqueness before the expensive hash. Reduces ambiguous
	// constraint-violation errors to the rare concurrent race.
	taken, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return nil, apperror.NewStoreError(err)
	}
	if taken {
		return nil, apperror.NewDuplicateIdentifier("Username already exists")
	}

	taken, err = s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, apperror.NewStoreError(err)
	}
	if taken {
		return nil, apperror.NewDuplicateIdentifier("Email already exists")
	}

	digest, err := HashPassword(password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	acct := &Account{
		Username:       username,
		Email:          email,
		PasswordDigest: digest,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, acct); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Type == apperror.TypeDuplicateIdentifier {
			// Lost the insert race to a concurrent registration.
			return nil, appErr
		}
		return nil, apperror.NewStoreError(err)
	}

	slog.Info("user registered",
		slog.Int64("user_id", acct.ID),
		slog.String("username", acct.Username),
		slog.String("email", acct.Email),
	)

	return acct, nil
}

// Delete removes an account. Deleting an id that is already absent still
// succeeds: the caller asked for the row to be gone and it is.
func (s *accountService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.NewBadRequest("User ID is required")
	}

	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperror.NewStoreError(err)
	}

	slog.Info("account deleted",
		slog.Int64("user_id", id),
		slog.Bool("existed", existed),
	)

	return nil
}

// Get fetches an account for the dashboard. The digest never leaves the
// model's JSON representation.
func (s *accountService) Get(ctx context.Context, id int64) (*Account, error) {
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewNotFound("Account not found")
		}
		return nil, apperror.NewStoreError(err)
	}
	return acct, nil
}

// ForgotPassword issues a one-time reset token for the account with the
// given email. Delivery is mocked: the reset link is logged instead of
// mailed. Only the token's SHA-256 is stored, with the configured TTL.
func (s *accountService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperror.NewMissingCredentials("Email is required")
	}

	acct, err := s.repo.FindByIdentifier(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return apperror.NewNotFound("Email not found")
		}
		return apperror.NewStoreError(err)
	}

	token, err := generateResetToken()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("generating reset token: %w", err))
	}

	if err := s.resets.Save(ctx, hashResetToken(token), acct.ID, s.cfg.ResetTokenTTL); err != nil {
		return apperror.NewStoreError(err)
	}

	// Mock delivery: a real deployment would hand the link to a mailer.
	slog.Info("password reset link issued",
		slog.String("email", acct.Email),
		slog.String("link", fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)),
	)

	return nil
}

// ResetPassword consumes a reset token and installs a new password. The
// token is single-use; consuming it also clears any lockout state so the
// user can sign in right away.
func (s *accountService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return apperror.NewBadRequest("Reset token is required")
	}
	if !StrongPassword(password) {
		return apperror.NewValidationFailed("Password too weak")
	}

	accountID, ok, err := s.resets.Consume(ctx, hashResetToken(token))
	if err != nil {
		return apperror.NewStoreError(err)
	}
	if !ok {
		return apperror.NewNotFound("Invalid or expired reset token")
	}

	digest, err := HashPassword(password)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.UpdatePassword(ctx, accountID, digest); err != nil {
		if isNotFound(err) {
			// Account deleted between token issue and use.
			return apperror.NewNotFound("Account not found")
		}
		return apperror.NewStoreError(err)
	}

	slog.Info("password reset completed", slog.Int64("user_id", accountID))

	return nil
}

// isNotFound reports whether err is the repository's not-found error.
func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Type == apperror.TypeNotFound
}
