package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/pkg/domain"
)

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier emails lead records through the SendGrid API.
type SendGridNotifier struct {
	client sendGridClient
	cfg    EmailConfig
	logger *slog.Logger
}

// NewSendGridNotifier creates a notifier using apiKey.
func NewSendGridNotifier(apiKey string, cfg EmailConfig, logger *slog.Logger) *SendGridNotifier {
	return newSendGridNotifier(sendgrid.NewSendClient(apiKey), cfg, logger)
}

func newSendGridNotifier(client sendGridClient, cfg EmailConfig, logger *slog.Logger) *SendGridNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SendGridNotifier{client: client, cfg: cfg.withDefaults(), logger: logger}
}

// Notify implements ports.Notifier.
func (s *SendGridNotifier) Notify(ctx context.Context, rec domain.LeadRecord) error {
	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromEmail)
	to := mail.NewEmail("", s.cfg.To)
	body := Body(rec)
	message := mail.NewSingleEmail(from, Subject(rec), to, body, "<pre>"+html.EscapeString(body)+"</pre>")

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("SendGrid returned error status", "status", resp.StatusCode, "body", resp.Body, "session_id", rec.SessionID)
		return fmt.Errorf("notify: sendgrid status %d", resp.StatusCode)
	}
	s.logger.Info("Lead emailed", "provider", "sendgrid", "session_id", rec.SessionID, "status", resp.StatusCode)
	return nil
}
