package notify

import (
	"context"
	"log/slog"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/pkg/domain"
)

// LogNotifier only logs lead records. Used when no provider is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements ports.Notifier.
func (l *LogNotifier) Notify(ctx context.Context, rec domain.LeadRecord) error {
	l.logger.Info("Lead completed", "session_id", rec.SessionID, "role", rec.Role, "goal", rec.Goal,
		"premium", rec.PremiumUnlocked, "email", rec.Answers[string(domain.FieldEmail)])
	return nil
}
