package payment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/pkg/domain"
)

// Mode selects how the FakeGateway answers.
type Mode string

const (
	ModeApprove Mode = "approve"
	ModeDecline Mode = "decline"
)

// ParseMode validates a mode name. An empty name selects ModeApprove.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeApprove:
		return ModeApprove, nil
	case ModeDecline:
		return ModeDecline, nil
	}
	return "", fmt.Errorf("payment: unknown fake mode %q", s)
}

// FakeGateway is a demo provider that never moves money. Repeating an
// idempotency key returns the first outcome.
type FakeGateway struct {
	mode   Mode
	logger *slog.Logger

	mu      sync.Mutex
	charges map[string]domain.ChargeOutcome
}

// NewFakeGateway creates a fake provider answering according to mode.
func NewFakeGateway(mode Mode, logger *slog.Logger) *FakeGateway {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FakeGateway{
		mode:    mode,
		logger:  logger,
		charges: make(map[string]domain.ChargeOutcome),
	}
}

// Charge implements ports.PaymentGateway.
func (g *FakeGateway) Charge(ctx context.Context, req domain.ChargeRequest) (domain.ChargeOutcome, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChargeOutcome{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.charges[req.IdempotencyKey]; ok {
		return prev, nil
	}
	outcome := domain.ChargeOutcome{Reference: "fake_" + uuid.NewString()}
	if g.mode == ModeDecline {
		outcome.Reason = "card declined"
	} else {
		outcome.Approved = true
	}
	g.charges[req.IdempotencyKey] = outcome

	g.logger.Info("Fake charge", "session_id", req.SessionID, "amount_cents", req.AmountCents,
		"currency", req.Currency, "approved", outcome.Approved)
	return outcome, nil
}

// Charges returns the number of distinct charges taken.
func (g *FakeGateway) Charges() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.charges)
}
