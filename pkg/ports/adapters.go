package ports

import (
	"context"

	"github.com/aretw0/openstars/pkg/domain"
)

// Analyzer infers a coarse industry label from a URL.
type Analyzer interface {
	// Analyze returns the label for url. Implementations may return an error;
	// the orchestrator turns it into an external failure event.
	Analyze(ctx context.Context, url string) (string, error)
}

// PaymentGateway performs one-time charges.
type PaymentGateway interface {
	// Charge attempts the payment described by req. A declined card is reported
	// as an outcome with Approved=false, not as an error. Errors mean the result
	// is unknown (transport failure, timeout, provider outage).
	Charge(ctx context.Context, req domain.ChargeRequest) (domain.ChargeOutcome, error)
}

// Notifier delivers a completed lead record. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, record domain.LeadRecord) error
}

// Random is the source of randomness injected into the engine and orchestrator.
// Implementations must be safe for concurrent use.
type Random interface {
	// IntN returns a uniform value in [0, n). It panics if n <= 0.
	IntN(n int) int
}
