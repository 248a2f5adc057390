// Package notification sends operator email about failed extraction runs.
// Delivery goes through the provider stored in the email configuration,
// either plain SMTP or SendGrid.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/enerluz/portalex/internal/alerting"
	"github.com/enerluz/portalex/internal/storage"
)

type Service struct {
	storage storage.Storage
}

func NewService(s storage.Storage) *Service {
	return &Service{storage: s}
}

func (s *Service) GetConfig(ctx context.Context) (*storage.EmailConfig, error) {
	return s.storage.GetEmailConfig(ctx)
}

func (s *Service) SaveConfig(ctx context.Context, cfg storage.EmailConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	return s.storage.SaveEmailConfig(ctx, cfg)
}

// NotifyRunFailures emails the configured recipient about a run's failed
// extractions. A run without failures sends nothing.
func (s *Service) NotifyRunFailures(ctx context.Context, alert alerting.RunAlert) error {
	if alert.FailedCount == 0 {
		return nil
	}
	cfg, err := s.storage.GetEmailConfig(ctx)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Enabled || cfg.Recipient == "" {
		return nil
	}

	subject := fmt.Sprintf("Tariff extraction: %d/%d distributors failed", alert.FailedCount, alert.TotalCount)
	var body strings.Builder
	fmt.Fprintf(&body, "<p>Extraction run %s finished in %s with %d of %d distributors failing.</p>",
		alert.RunID, alert.Duration.Round(time.Millisecond), alert.FailedCount, alert.TotalCount)
	body.WriteString("<ul>")
	for _, f := range alert.FailedDetails {
		fmt.Fprintf(&body, "<li><b>%s</b>: %s &mdash; %s (attempts: %d)</li>",
			f.Distributor, f.Reason, f.Error, f.Attempts)
	}
	body.WriteString("</ul>")

	return s.send(cfg, cfg.Recipient, subject, body.String())
}

func (s *Service) SendEmail(ctx context.Context, to, subject, body string) error {
	cfg, err := s.storage.GetEmailConfig(ctx)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Enabled {
		return errors.New("email not configured or disabled")
	}
	return s.send(cfg, to, subject, body)
}

// TestConfig sends a test email using the provided (not yet saved) config.
func (s *Service) TestConfig(ctx context.Context, cfg storage.EmailConfig, to string) error {
	return s.send(&cfg, to, "Test Email", "This is a test email from the tariff extraction service.")
}

func (s *Service) send(cfg *storage.EmailConfig, to, subject, body string) error {
	switch cfg.Provider {
	case "smtp", "gmail":
		return s.sendSMTP(cfg, to, subject, body)
	case "sendgrid":
		return s.sendSendgrid(cfg, to, subject, body)
	default:
		return fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

func (s *Service) sendSMTP(cfg *storage.EmailConfig, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
		"\r\n"+
		"%s\r\n", to, subject, body))

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	// smtp.SendMail negotiates STARTTLS when the server advertises it.
	return smtp.SendMail(addr, auth, cfg.FromAddress, []string{to}, msg)
}

func (s *Service) sendSendgrid(cfg *storage.EmailConfig, to, subject, body string) error {
	from := mail.NewEmail(cfg.FromName, cfg.FromAddress)
	toEmail := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, toEmail, body, body)
	client := sendgrid.NewSendClient(cfg.APIKey)
	resp, err := client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}
