package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/pkg/domain"
)

// SESAPI is the subset of the SES v2 client used by SESNotifier.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier emails lead records through AWS SES.
type SESNotifier struct {
	client SESAPI
	cfg    EmailConfig
	logger *slog.Logger
}

// NewSESNotifier creates a notifier around an SES client.
func NewSESNotifier(client SESAPI, cfg EmailConfig, logger *slog.Logger) *SESNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SESNotifier{client: client, cfg: cfg.withDefaults(), logger: logger}
}

// Notify implements ports.Notifier.
func (s *SESNotifier) Notify(ctx context.Context, rec domain.LeadRecord) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)),
		Destination: &types.Destination{
			ToAddresses: []string{s.cfg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(Subject(rec)),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(Body(rec)),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("notify: ses send: %w", err)
	}
	s.logger.Info("Lead emailed", "provider", "ses", "session_id", rec.SessionID, "message_id", aws.ToString(out.MessageId))
	return nil
}
