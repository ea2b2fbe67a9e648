package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"cvstudio/internal/conversation"
	apperrors "cvstudio/internal/errors"
	"cvstudio/internal/types"
)

func TestStatusForAppError(t *testing.T) {
	tests := []struct {
		name string
		err  *apperrors.AppError
		want int
	}{
		{
			name: "not found",
			err:  apperrors.NewStorageError(apperrors.ErrCodeNotFound, "Document not found", nil),
			want: http.StatusNotFound,
		},
		{
			name: "turn in progress",
			err:  apperrors.NewValidationError(apperrors.ErrCodeTurnInProgress, "A turn is already running", nil),
			want: http.StatusConflict,
		},
		{
			name: "session closed",
			err:  apperrors.NewValidationError(apperrors.ErrCodeSessionClosed, "Session is closed", nil),
			want: http.StatusConflict,
		},
		{
			name: "email taken",
			err:  apperrors.NewValidationError(apperrors.ErrCodeEmailTaken, "Email already registered", nil),
			want: http.StatusConflict,
		},
		{
			name: "file too large",
			err:  apperrors.NewValidationError(apperrors.ErrCodeFileTooLarge, "File exceeds size limit", nil),
			want: http.StatusRequestEntityTooLarge,
		},
		{
			name: "unsupported file type",
			err:  apperrors.NewValidationError(apperrors.ErrCodeUnsupportedFileType, "Unsupported file type", nil),
			want: http.StatusUnsupportedMediaType,
		},
		{
			name: "invalid credentials",
			err:  apperrors.NewAuthError(apperrors.ErrCodeInvalidCredentials, "Invalid email or password", nil),
			want: http.StatusUnauthorized,
		},
		{
			name: "generic validation",
			err:  apperrors.NewValidationError(apperrors.ErrCodeInvalidInput, "Bad input", nil),
			want: http.StatusBadRequest,
		},
		{
			name: "quota",
			err:  apperrors.NewQuotaError(apperrors.ErrCodeQuotaExceeded, "Quota exceeded", nil),
			want: http.StatusTooManyRequests,
		},
		{
			name: "transport",
			err:  apperrors.NewTransportError(apperrors.ErrCodeModelUnreachable, "Upstream unavailable", nil),
			want: http.StatusBadGateway,
		},
		{
			name: "parse failure",
			err:  apperrors.NewParseError(apperrors.ErrCodeReplyNotParseable, "Malformed model reply", nil),
			want: http.StatusBadGateway,
		},
		{
			name: "internal default",
			err:  apperrors.NewInternalError(apperrors.ErrCodeStorageFailed, "Something broke", nil),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForAppError(tt.err); got != tt.want {
				t.Errorf("statusForAppError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSessionRegistryUserScoping(t *testing.T) {
	reg := newSessionRegistry()
	sess := conversation.NewSession("user-a", types.KindResume, "")
	reg.Add(sess)

	got, err := reg.Get("user-a", sess.ID)
	if err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("got session %s, want %s", got.ID, sess.ID)
	}

	// A foreign account must see the same error as a missing session
	_, foreignErr := reg.Get("user-b", sess.ID)
	if foreignErr == nil {
		t.Fatal("expected error for foreign session lookup")
	}
	_, missingErr := reg.Get("user-a", "no-such-session")
	if missingErr == nil {
		t.Fatal("expected error for missing session lookup")
	}

	var foreignApp, missingApp *apperrors.AppError
	if !apperrors.As(foreignErr, &foreignApp) || !apperrors.As(missingErr, &missingApp) {
		t.Fatal("expected structured errors")
	}
	if foreignApp.Code != apperrors.ErrCodeNotFound {
		t.Errorf("foreign lookup code = %s, want %s", foreignApp.Code, apperrors.ErrCodeNotFound)
	}
	if missingApp.Code != foreignApp.Code {
		t.Errorf("foreign and missing lookups should be indistinguishable: %s vs %s",
			foreignApp.Code, missingApp.Code)
	}

	reg.Remove(sess.ID)
	if reg.Len() != 0 {
		t.Errorf("Len() = %d after Remove, want 0", reg.Len())
	}
}

func TestGetRateLimitKey(t *testing.T) {
	authedRequest := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
		ctx := context.WithValue(r.Context(), userIDKey, "user-123")
		return r.WithContext(ctx)
	}
	anonRequest := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		r.RemoteAddr = "203.0.113.7:54321"
		return r
	}

	tests := []struct {
		name   string
		req    *http.Request
		byUser bool
		byIP   bool
		want   string
	}{
		{"authenticated by user", authedRequest(), true, true, "user:user-123"},
		{"anonymous falls back to IP", anonRequest(), true, true, "ip:203.0.113.7"},
		{"by IP only", authedRequest(), false, true, "ip:192.0.2.1"},
		{"limiting disabled per key", anonRequest(), false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getRateLimitKey(tt.req, tt.byUser, tt.byIP); got != tt.want {
				t.Errorf("getRateLimitKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadMultipartFilesKeepsDuplicateNames(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, content := range []string{"first upload", "second upload"} {
		part, err := mw.CreateFormFile("files", "notes.txt")
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("writing part failed: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing writer failed: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/s1/files", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	files, err := readMultipartFiles(r)
	if err != nil {
		t.Fatalf("readMultipartFiles returned error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if string(files[0].Data) != "first upload" || string(files[1].Data) != "second upload" {
		t.Errorf("uploads sharing a filename must keep both payloads, got %q and %q",
			files[0].Data, files[1].Data)
	}
}

func TestGetClientIPForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	if got := getClientIP(r); got != "198.51.100.9" {
		t.Errorf("getClientIP() = %q, want first forwarded IP", got)
	}
}
