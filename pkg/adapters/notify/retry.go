package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/ports"
)

// Retrying retries a notifier with exponential backoff.
type Retrying struct {
	next        ports.Notifier
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// NewRetrying wraps next with 3 attempts and a 200ms base delay.
func NewRetrying(next ports.Notifier, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Retrying{
		next:        next,
		maxAttempts: 3,
		baseDelay:   200 * time.Millisecond,
		logger:      logger,
	}
}

func (r *Retrying) WithMaxAttempts(n int) *Retrying {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

func (r *Retrying) WithBaseDelay(d time.Duration) *Retrying {
	if d >= 0 {
		r.baseDelay = d
	}
	return r
}

// Notify implements ports.Notifier. It stops early when ctx is done.
func (r *Retrying) Notify(ctx context.Context, rec domain.LeadRecord) error {
	var errs []error
	delay := r.baseDelay
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.next.Notify(ctx, rec)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
		if attempt == r.maxAttempts {
			break
		}
		r.logger.Warn("Notification attempt failed", "session_id", rec.SessionID, "attempt", attempt, "err", err)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("notify: gave up after %d attempts: %w", attempt, errors.Join(append(errs, ctx.Err())...))
		case <-t.C:
		}
		delay *= 2
	}
	return fmt.Errorf("notify: gave up after %d attempts: %w", r.maxAttempts, errors.Join(errs...))
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []ports.Notifier

// Notify implements ports.Notifier.
func (f Fanout) Notify(ctx context.Context, rec domain.LeadRecord) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
