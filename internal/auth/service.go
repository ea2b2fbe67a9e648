package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"cvstudio/internal/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// User is an account holder
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ResetMailer delivers password reset links. Implemented by the email
// package; nil disables reset mail (the token is still created, for
// deployments that deliver it through another channel).
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, resetToken string) error
}

// Service implements signup, login and password reset on top of the
// shared database pool.
type Service struct {
	pool       *pgxpool.Pool
	tokens     *TokenService
	mailer     ResetMailer
	logger     *errors.Logger
	bcryptCost int
	resetTTL   time.Duration
}

// Options tunes the auth service. Zero values fall back to defaults.
type Options struct {
	BcryptCost int
	ResetTTL   time.Duration
}

// NewService wires the auth service
func NewService(pool *pgxpool.Pool, tokens *TokenService, mailer ResetMailer, logger *errors.Logger, opts Options) *Service {
	if opts.BcryptCost < bcrypt.MinCost {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	return &Service{
		pool:       pool,
		tokens:     tokens,
		mailer:     mailer,
		logger:     logger,
		bcryptCost: opts.BcryptCost,
		resetTTL:   opts.ResetTTL,
	}
}

// SignUp registers a new account and returns the user with a fresh session
// token.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (*User, string, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", errors.NewInternalError(errors.ErrCodeHashFailed,
			"Failed to hash password", err)
	}

	user := &User{
		ID:          uuid.New().String(),
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   time.Now().UTC(),
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, string(hash), user.DisplayName, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", errors.NewValidationError(errors.ErrCodeEmailTaken,
				"An account with this email already exists", nil)
		}
		return nil, "", errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to create account", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("Account created", "user_id", user.ID)
	return user, token, nil
}

// LogIn verifies credentials and returns the user with a session token.
// Unknown email and wrong password produce the same error so the endpoint
// does not leak which accounts exist.
func (s *Service) LogIn(ctx context.Context, email, password string) (*User, string, error) {
	email = normalizeEmail(email)

	var (
		user User
		hash string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, display_name, created_at
		 FROM users WHERE email = $1`, email).
		Scan(&user.ID, &user.Email, &hash, &user.DisplayName, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", invalidCredentials()
	}
	if err != nil {
		return nil, "", errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to look up account", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, "", invalidCredentials()
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// CurrentUser resolves a session token to its account
func (s *Service) CurrentUser(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	var user User
	err = s.pool.QueryRow(ctx,
		`SELECT id, email, display_name, created_at FROM users WHERE id = $1`,
		claims.Subject).
		Scan(&user.ID, &user.Email, &user.DisplayName, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NewAuthError(errors.ErrCodeUnauthorized,
			"Account no longer exists", nil)
	}
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to look up account", err)
	}
	return &user, nil
}

// RequestPasswordReset creates a reset token and mails it. The call
// reports success even for unknown emails so it cannot be used to probe
// which accounts exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	var userID string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1`, email).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Debug("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to look up account", err)
	}

	token := uuid.New().String()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO password_resets (token, user_id, expires_at)
		 VALUES ($1, $2, $3)`,
		token, userID, time.Now().UTC().Add(s.resetTTL))
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to create reset token", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, email, token); err != nil {
			s.logger.LogError(err, "Reset mail delivery failed", "user_id", userID)
			return errors.NewInternalError(errors.ErrCodeMailFailed,
				"Failed to send the reset email", err)
		}
	}

	s.logger.Info("Password reset requested", "user_id", userID)
	return nil
}

// ResetPassword consumes a reset token and sets the new password
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return errors.NewValidationError(errors.ErrCodeWeakPassword,
			fmt.Sprintf("Password must be at least %d characters", minPasswordLength), nil)
	}

	var (
		userID    string
		expiresAt time.Time
		used      bool
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, expires_at, used FROM password_resets WHERE token = $1`,
		token).Scan(&userID, &expiresAt, &used)
	if errors.Is(err, pgx.ErrNoRows) {
		return invalidResetToken()
	}
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to look up reset token", err)
	}
	if used || time.Now().UTC().After(expiresAt) {
		return invalidResetToken()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeHashFailed,
			"Failed to hash password", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to start transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`, string(hash), userID); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to update password", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE password_resets SET used = true WHERE token = $1`, token); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to consume reset token", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to commit password reset", err)
	}

	s.logger.Info("Password reset completed", "user_id", userID)
	return nil
}

const minPasswordLength = 8

func validateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidEmail,
			"Email address is not valid", err)
	}
	if len(password) < minPasswordLength {
		return errors.NewValidationError(errors.ErrCodeWeakPassword,
			fmt.Sprintf("Password must be at least %d characters", minPasswordLength), nil)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidCredentials() error {
	return errors.NewAuthError(errors.ErrCodeInvalidCredentials,
		"Email or password is incorrect", nil)
}

func invalidResetToken() error {
	return errors.NewAuthError(errors.ErrCodeInvalidResetToken,
		"Reset token is invalid, used or expired", nil)
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
