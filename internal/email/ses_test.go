package email

import (
	"strings"
	"testing"
	"time"
)

func TestExpiryText(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want string
	}{
		{time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{30 * time.Minute, "30 minutes"},
		{90 * time.Minute, "90 minutes"},
		{time.Minute, "1 minute"},
	}

	for _, tt := range tests {
		if got := expiryText(tt.ttl); got != tt.want {
			t.Errorf("expiryText(%v) = %q, want %q", tt.ttl, got, tt.want)
		}
	}
}

func TestPasswordResetHTMLQuotesConfiguredExpiry(t *testing.T) {
	body := buildPasswordResetHTML("https://app.example.com/reset-password?token=abc", "30 minutes")
	if !strings.Contains(body, "expires in 30 minutes") {
		t.Errorf("mail body should quote the configured expiry, got:\n%s", body)
	}
	if !strings.Contains(body, "https://app.example.com/reset-password?token=abc") {
		t.Errorf("mail body should carry the reset link")
	}
}
