package openstars

import (
	"github.com/aretw0/openstars/internal/runtime"
	"github.com/aretw0/openstars/pkg/adapters/analysis"
	"github.com/aretw0/openstars/pkg/adapters/notify"
	"github.com/aretw0/openstars/pkg/adapters/payment"
	"github.com/aretw0/openstars/pkg/orchestrator"
)

// Version is the release of the concierge reported by the CLI and the APIs.
const Version = "0.4.0"

// New returns a concierge running the built-in dialogue and catalog.
//
// Without options it works fully offline: URLs are classified with the
// keyword rules, payments go through an approving fake gateway and completed
// leads are only logged. Any option given replaces the matching default.
func New(opts ...orchestrator.Option) *orchestrator.Orchestrator {
	defaults := []orchestrator.Option{
		orchestrator.WithAnalyzer(analysis.NewKeywordAnalyzer()),
		orchestrator.WithPaymentGateway(payment.NewFakeGateway(payment.ModeApprove, nil)),
		orchestrator.WithNotifier(notify.NewLogNotifier(nil)),
	}
	return orchestrator.New(runtime.NewEngine(), append(defaults, opts...)...)
}
