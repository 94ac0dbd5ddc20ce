package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/vivido-app/vivido/internal/apperror"
)

// mysqlDuplicateEntry is the MariaDB errno for a unique-constraint violation.
const mysqlDuplicateEntry = 1062

// Repository defines the data access contract for account records.
// All SQL lives in the concrete implementation -- no SQL leaks out.
//
// InTx runs fn against a transaction-scoped repository. Inside the
// transaction, FindByIdentifier locks the matched row (SELECT ... FOR
// UPDATE), so a whole lock-check/verify/update sequence for one account is
// serialized against concurrent attempts on the same account. Lookups
// outside a transaction are plain lock-free reads.
type Repository interface {
	Create(ctx context.Context, acct *Account) error
	FindByID(ctx context.Context, id int64) (*Account, error)
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// Authentication engine mutations. Each persists immediately; the
	// engine never returns with unsaved counter or lock state.
	SaveLoginFailure(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error
	SaveLoginSuccess(ctx context.Context, id int64, at time.Time) error
	ClearExpiredLock(ctx context.Context, id int64) error

	UpdatePassword(ctx context.Context, id int64, digest string) error
	Delete(ctx context.Context, id int64) (bool, error)

	InTx(ctx context.Context, fn func(Repository) error) error
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mariadbRepository implements Repository with hand-written MariaDB queries.
// When transaction-scoped (created by InTx), db is nil and q is the *sql.Tx.
type mariadbRepository struct {
	db *sql.DB
	q  querier
}

// NewRepository creates a new account repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &mariadbRepository{db: db, q: db}
}

// accountColumns is the scan list shared by the account queries.
const accountColumns = `id, username, email, password_digest, is_active,
	       failed_attempts, locked_until, last_login, created_at`

// Create inserts a new account row and fills in the assigned id.
// A username/email collision that slips past the registration pre-checks is
// caught here via the unique constraints (errno 1062).
func (r *mariadbRepository) Create(ctx context.Context, acct *Account) error {
	query := `INSERT INTO accounts (username, email, password_digest, is_active, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	res, err := r.q.ExecContext(ctx, query,
		acct.Username,
		acct.Email,
		acct.PasswordDigest,
		acct.IsActive,
		acct.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return apperror.NewDuplicateIdentifier("Username or email already exists")
		}
		return fmt.Errorf("inserting account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted account id: %w", err)
	}
	acct.ID = id

	return nil
}

// FindByID retrieves an account by its id.
// Returns apperror.NotFound if no account exists with this id.
func (r *mariadbRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	acct, err := scanAccount(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by id: %w", err)
	}

	return acct, nil
}

// FindByIdentifier retrieves an account whose username or email matches the
// identifier, case-insensitively. The caller normalizes (trim + lowercase)
// before lookup. Inside a transaction the matched row is locked for update.
// Returns apperror.NotFound if nothing matches.
func (r *mariadbRepository) FindByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	query := `SELECT ` + accountColumns + `
	          FROM accounts WHERE LOWER(username) = ? OR LOWER(email) = ?`
	if r.inTx() {
		query += ` FOR UPDATE`
	}

	acct, err := scanAccount(r.q.QueryRowContext(ctx, query, identifier, identifier))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by identifier: %w", err)
	}

	return acct, nil
}

// UsernameExists returns true if an account with the given username already
// exists (case-insensitive). Used by the registration pre-check.
func (r *mariadbRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE LOWER(username) = LOWER(?))`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking username existence: %w", err)
	}

	return exists, nil
}

// EmailExists returns true if an account with the given email already exists
// (case-insensitive). Used by the registration pre-check.
func (r *mariadbRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE LOWER(email) = LOWER(?))`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}

	return exists, nil
}

// SaveLoginFailure persists an incremented failure counter and, when the
// attempt triggered a lockout, the lock expiry.
func (r *mariadbRepository) SaveLoginFailure(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
	query := `UPDATE accounts SET failed_attempts = ?, locked_until = ? WHERE id = ?`

	if _, err := r.q.ExecContext(ctx, query, attempts, lockedUntil, id); err != nil {
		return fmt.Errorf("saving login failure: %w", err)
	}

	return nil
}

// SaveLoginSuccess records the login timestamp and resets the failure state.
func (r *mariadbRepository) SaveLoginSuccess(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE accounts SET last_login = ?, failed_attempts = 0, locked_until = NULL
	          WHERE id = ?`

	if _, err := r.q.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("saving login success: %w", err)
	}

	return nil
}

// ClearExpiredLock resets the lock and failure counter once the engine has
// observed that the lock expiry has passed (lazy unlock).
func (r *mariadbRepository) ClearExpiredLock(ctx context.Context, id int64) error {
	query := `UPDATE accounts SET locked_until = NULL, failed_attempts = 0 WHERE id = ?`

	if _, err := r.q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("clearing expired lock: %w", err)
	}

	return nil
}

// UpdatePassword replaces the stored digest. A completed password reset also
// clears any lockout state, so the user can sign in immediately.
func (r *mariadbRepository) UpdatePassword(ctx context.Context, id int64, digest string) error {
	query := `UPDATE accounts SET password_digest = ?, failed_attempts = 0, locked_until = NULL
	          WHERE id = ?`

	result, err := r.q.ExecContext(ctx, query, digest, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("account not found")
	}

	return nil
}

// Delete removes an account row. Returns whether a row was actually present;
// deleting an absent id is not an error.
func (r *mariadbRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting account: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}

	return n > 0, nil
}

// InTx begins a transaction and runs fn against a transaction-scoped
// repository. A nil return from fn commits; an error rolls back and is
// returned. Nested calls reuse the surrounding transaction.
func (r *mariadbRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.inTx() {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&mariadbRepository{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (r *mariadbRepository) inTx() bool {
	return r.db == nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	acct := &Account{}
	err := row.Scan(
		&acct.ID,
		&acct.Username,
		&acct.Email,
		&acct.PasswordDigest,
		&acct.IsActive,
		&acct.FailedAttempts,
		&acct.LockedUntil,
		&acct.LastLogin,
		&acct.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return acct, nil
}
