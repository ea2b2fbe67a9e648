package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeQuota      ErrorType = "quota"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// newAppError is an unexported helper to create AppError instances
func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewTransportError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeTransport, code, message, cause)
}

func NewAuthError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAuth, code, message, cause)
}

func NewQuotaError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeQuota, code, message, cause)
}

func NewParseError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeParse, code, message, cause)
}

func NewStorageError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeStorage, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, code, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// isType reports whether err is an AppError of the given type
func isType(err error, typ ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == typ
	}
	return false
}

// IsTransport reports whether err is a transport error (network/timeout).
// Transport errors are recoverable; the user may retry by resubmitting.
func IsTransport(err error) bool {
	return isType(err, ErrorTypeTransport)
}

// IsAuth reports whether err is a credential error. Auth errors are fatal
// to the session's AI features and must never be retried.
func IsAuth(err error) bool {
	return isType(err, ErrorTypeAuth)
}

// IsQuota reports whether err is a rate-limit error from the upstream model.
func IsQuota(err error) bool {
	return isType(err, ErrorTypeQuota)
}

// IsParse reports whether err is a reply-parse error. Callers recover
// locally by surfacing the raw reply instead of aborting the conversation.
func IsParse(err error) bool {
	return isType(err, ErrorTypeParse)
}

// IsValidation reports whether err is a request validation error.
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsStorage reports whether err is a document store error.
func IsStorage(err error) bool {
	return isType(err, ErrorTypeStorage)
}

// IsNotFound reports whether err is a storage error carrying the not-found
// code, so handlers can map it to a 404.
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrCodeNotFound
	}
	return false
}

// As is a convenience re-export so callers can target *AppError without
// importing both this package and the standard errors package.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is a convenience re-export matching As.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger
func NewLogger(level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(handler)

	return &Logger{logger: logger}
}

// LogError logs an application error with appropriate level and context
func (l *Logger) LogError(err error, message string, args ...any) {
	if appErr, ok := err.(*AppError); ok {
		logArgs := []any{
			"error_type", appErr.Type,
			"error_code", appErr.Code,
			"error_message", appErr.Message,
		}

		// Add context if available
		for key, value := range appErr.Context {
			logArgs = append(logArgs, key, value)
		}

		// Add additional args
		logArgs = append(logArgs, args...)

		l.logger.Error(message, logArgs...)
	} else {
		// Regular error
		logArgs := append([]any{"error", err.Error()}, args...)
		l.logger.Error(message, logArgs...)
	}
}

func (l *Logger) Info(message string, args ...any) {
	l.logger.Info(message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	l.logger.Debug(message, args...)
}

func (l *Logger) Warn(message string, args ...any) {
	l.logger.Warn(message, args...)
}

// New creates a new logger instance
func New(level string) (*Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	return NewLogger(slogLevel), nil
}

// Common error codes
const (
	ErrCodeFileNotFound        = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable     = "FILE_NOT_READABLE"
	ErrCodeInvalidFormat       = "INVALID_FORMAT"
	ErrCodeModelUnreachable    = "MODEL_UNREACHABLE"
	ErrCodeModelTimeout        = "MODEL_TIMEOUT"
	ErrCodeBadCredential       = "BAD_MODEL_CREDENTIAL"
	ErrCodeQuotaExceeded       = "MODEL_QUOTA_EXCEEDED"
	ErrCodeMalformedUpstream   = "MALFORMED_UPSTREAM_REPLY"
	ErrCodeReplyNotParseable   = "REPLY_NOT_PARSEABLE"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeFileTooLarge        = "FILE_TOO_LARGE"
	ErrCodeUnsupportedFileType = "UNSUPPORTED_FILE_TYPE"
	ErrCodeTurnInProgress      = "TURN_IN_PROGRESS"
	ErrCodeSessionClosed       = "SESSION_CLOSED"
	ErrCodeStaleTurn           = "STALE_TURN"
	ErrCodeMissingAPIKey       = "MISSING_API_KEY"
	ErrCodeInvalidConfig       = "INVALID_CONFIG"
	ErrCodeStorageFailed       = "STORAGE_FAILED"
	ErrCodeBlobUploadFailed    = "BLOB_UPLOAD_FAILED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeUnauthorized        = "UNAUTHORIZED"

	// Account lifecycle
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidEmail       = "INVALID_EMAIL"
	ErrCodeWeakPassword       = "WEAK_PASSWORD"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidResetToken  = "INVALID_RESET_TOKEN"
	ErrCodeTokenSignFailed    = "TOKEN_SIGN_FAILED"
	ErrCodeHashFailed         = "HASH_FAILED"
	ErrCodeMailFailed         = "MAIL_FAILED"
)
