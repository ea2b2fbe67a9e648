package auth

import (
	"fmt"
	"testing"

	apperrors "cvstudio/internal/errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

	if !isUniqueViolation(pgErr) {
		t.Error("bare 23505 PgError should be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert account: %w", pgErr)) {
		t.Error("wrapped 23505 PgError should be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation must not read as a unique violation")
	}
	// Matching must go through the error chain, not message text
	if isUniqueViolation(fmt.Errorf("row 23505 could not be parsed")) {
		t.Error("a message merely mentioning 23505 must not match")
	}
	if isUniqueViolation(nil) {
		t.Error("nil is not a unique violation")
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantCode string
	}{
		{"valid", "jane@example.com", "longenough", ""},
		{"bad email", "not-an-email", "longenough", apperrors.ErrCodeInvalidEmail},
		{"short password", "jane@example.com", "short", apperrors.ErrCodeWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCredentials(tt.email, tt.password)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var appErr *apperrors.AppError
			if !apperrors.As(err, &appErr) || appErr.Code != tt.wantCode {
				t.Errorf("got %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  Jane@Example.COM "); got != "jane@example.com" {
		t.Errorf("normalizeEmail() = %q", got)
	}
}
