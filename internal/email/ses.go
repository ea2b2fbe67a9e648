package email

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"cvstudio/internal/errors"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESSender delivers account mail through Amazon SES
type SESSender struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	frontendURL string
	resetTTL    time.Duration
}

// Config holds SES delivery settings. ResetTTL is the reset link lifetime
// quoted in the mail; it must match the auth service's token TTL.
type Config struct {
	Region      string
	FromAddress string
	FromName    string
	FrontendURL string
	ResetTTL    time.Duration
}

// NewSESSender creates the SES mail sender
func NewSESSender(ctx context.Context, cfg Config) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"Failed to load AWS configuration for SES", err)
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	return &SESSender{
		client:      sesv2.NewFromConfig(awsCfg),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		frontendURL: cfg.FrontendURL,
		resetTTL:    cfg.ResetTTL,
	}, nil
}

// SendPasswordReset mails a reset link carrying the given token
func (s *SESSender) SendPasswordReset(ctx context.Context, to, resetToken string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(resetToken))

	subject := "Reset your CV Studio password"
	expiry := expiryText(s.resetTTL)
	textBody := fmt.Sprintf("We received a request to reset your password. Visit the link below to set a new password:\n%s\n\nThe link expires in %s. If you didn't request this, you can safely ignore this email.", resetURL, expiry)
	htmlBody := buildPasswordResetHTML(resetURL, expiry)

	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: &subject},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: &htmlBody},
					Text: &sestypes.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeMailFailed,
			"SES delivery failed", err)
	}
	return nil
}

func buildPasswordResetHTML(resetURL, expiry string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Reset your password</h2>
  <p>We received a request to reset your CV Studio password. Click the button below to set a new password:</p>
  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Reset Password</a>
  </p>
  <p>Or copy and paste this link into your browser:</p>
  <p style="word-break: break-all; color: #666;">%s</p>
  <p style="color: #999; font-size: 12px;">The link expires in %s. If you didn't request a password reset, you can safely ignore this email.</p>
</body>
</html>`, resetURL, resetURL, expiry)
}

// expiryText renders a TTL the way a mail reader expects it, hours for
// whole-hour values and minutes otherwise
func expiryText(ttl time.Duration) string {
	if ttl >= time.Hour && ttl%time.Hour == 0 {
		hours := int(ttl / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(ttl / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
