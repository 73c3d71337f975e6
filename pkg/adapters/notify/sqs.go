package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/pkg/domain"
)

// SQSAPI is the subset of the SQS client used by SQSNotifier.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSNotifier publishes lead records as JSON messages on an SQS queue.
type SQSNotifier struct {
	client   SQSAPI
	queueURL string
	logger   *slog.Logger
}

// NewSQSNotifier creates a notifier for queueURL.
func NewSQSNotifier(client SQSAPI, queueURL string, logger *slog.Logger) *SQSNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SQSNotifier{client: client, queueURL: queueURL, logger: logger}
}

// Notify implements ports.Notifier.
func (q *SQSNotifier) Notify(ctx context.Context, rec domain.LeadRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("notify: encode lead: %w", err)
	}
	out, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("notify: sqs send: %w", err)
	}
	q.logger.Info("Lead queued", "provider", "sqs", "session_id", rec.SessionID, "message_id", aws.ToString(out.MessageId))
	return nil
}
