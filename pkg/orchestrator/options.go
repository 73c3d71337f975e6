package orchestrator

import (
	"log/slog"
	"time"

	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/ports"
	"github.com/aretw0/openstars/pkg/session"
)

const (
	// DefaultInboxSize is the number of events buffered per session.
	DefaultInboxSize = 64

	DefaultComposeMin = 600 * time.Millisecond
	DefaultComposeMax = 1000 * time.Millisecond

	// DefaultMaxInputSize is 4KB.
	DefaultMaxInputSize = 4096
)

// Timeouts bounds each adapter call.
type Timeouts struct {
	Analyze time.Duration
	Charge  time.Duration
	Notify  time.Duration
}

// DefaultTimeouts returns the adapter timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Analyze: 5 * time.Second,
		Charge:  15 * time.Second,
		Notify:  10 * time.Second,
	}
}

// Option defines a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithHooks registers lifecycle callbacks. Repeated calls are merged.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = o.hooks.Merge(hooks)
	}
}

// WithSessions sets the session manager. Defaults to a fresh one.
func WithSessions(m *session.Manager) Option {
	return func(o *Orchestrator) {
		o.sessions = m
	}
}

// WithBroker sets the broker messages are published to.
func WithBroker(b *Broker) Option {
	return func(o *Orchestrator) {
		o.broker = b
	}
}

// WithAnalyzer configures the content analysis service.
func WithAnalyzer(a ports.Analyzer) Option {
	return func(o *Orchestrator) {
		o.analyzer = a
	}
}

// WithPaymentGateway configures the payment provider.
func WithPaymentGateway(p ports.PaymentGateway) Option {
	return func(o *Orchestrator) {
		o.payments = p
	}
}

// WithNotifier configures where completed leads are delivered.
func WithNotifier(n ports.Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// WithChargeGuard configures the at-most-once guard for charges.
func WithChargeGuard(g ports.ChargeGuard) Option {
	return func(o *Orchestrator) {
		o.guard = g
	}
}

// WithRandom injects the randomness used for composing pauses.
func WithRandom(r ports.Random) Option {
	return func(o *Orchestrator) {
		o.random = r
	}
}

// WithComposeDelay sets the bounds of the pause before each bot message.
func WithComposeDelay(lo, hi time.Duration) Option {
	return func(o *Orchestrator) {
		if lo < 0 {
			lo = 0
		}
		if hi < lo {
			hi = lo
		}
		o.composeMin, o.composeMax = lo, hi
	}
}

// WithTimeouts sets the per-adapter call timeouts. Zero fields keep the default.
func WithTimeouts(t Timeouts) Option {
	return func(o *Orchestrator) {
		if t.Analyze > 0 {
			o.timeouts.Analyze = t.Analyze
		}
		if t.Charge > 0 {
			o.timeouts.Charge = t.Charge
		}
		if t.Notify > 0 {
			o.timeouts.Notify = t.Notify
		}
	}
}

// WithInboxSize sets the per-session event buffer. It also bounds the visitor
// events deferred while an adapter call is pending.
func WithInboxSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.inboxSize = n
		}
	}
}

// WithMaxInputSize sets the largest free-text answer accepted, in bytes.
func WithMaxInputSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxInput = n
		}
	}
}
