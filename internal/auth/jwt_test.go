package auth

import (
	"testing"
	"time"

	apperrors "cvstudio/internal/errors"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("user-1", "jane@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Email != "jane@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.Issue("user-1", "jane@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := verifier.Verify(token); !apperrors.IsAuth(err) {
		t.Fatalf("want auth error for wrong secret, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)

	token, err := svc.Issue("user-1", "jane@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := svc.Verify(token); !apperrors.IsAuth(err) {
		t.Fatalf("want auth error for expired token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	if _, err := svc.Verify("not-a-token"); !apperrors.IsAuth(err) {
		t.Fatalf("want auth error for garbage token, got %v", err)
	}
}
