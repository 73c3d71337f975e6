package observability

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/openstars/pkg/domain"
)

// Metrics exposes counters and histograms for conversations.
type Metrics struct {
	transitions     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	adapterCalls    *prometheus.CounterVec
	adapterLatency  *prometheus.HistogramVec
	frozen          prometheus.Counter
	composeDelay    prometheus.Histogram
	conversationEnd *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics. A nil registerer uses the
// Prometheus default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openstars",
			Name:      "transitions_total",
			Help:      "Completed transitions by destination step and event kind",
		}, []string{"to", "event"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openstars",
			Name:      "rejected_events_total",
			Help:      "Events ignored by a guard",
		}, []string{"reason"}),
		adapterCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openstars",
			Subsystem: "adapter",
			Name:      "calls_total",
			Help:      "External service calls by outcome",
		}, []string{"adapter", "status"}),
		adapterLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "openstars",
			Subsystem: "adapter",
			Name:      "duration_seconds",
			Help:      "Latency of external service calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"adapter"}),
		frozen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "openstars",
			Name:      "frozen_sessions_total",
			Help:      "Sessions frozen after an invariant violation",
		}),
		composeDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "openstars",
			Name:      "compose_delay_seconds",
			Help:      "Simulated typing pause before bot messages",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.6, 0.7, 0.8, 0.9, 1, 1.5, 2},
		}),
		conversationEnd: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openstars",
			Name:      "conversations_completed_total",
			Help:      "Conversations that reached confirmation",
		}, []string{"premium"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.rejections, m.adapterCalls, m.adapterLatency,
		m.frozen, m.composeDelay, m.conversationEnd)
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	if m == nil {
		return domain.LifecycleHooks{}
	}
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(string(e.To.Kind), string(e.Event)).Inc()
			if e.To.Terminal() {
				m.conversationEnd.WithLabelValues(strconv.FormatBool(e.Premium)).Inc()
			}
		},
		OnReject: func(_ context.Context, e *domain.RejectEvent) {
			m.rejections.WithLabelValues(e.Reason).Inc()
		},
		OnCompose: func(_ context.Context, e *domain.ComposeEvent) {
			m.composeDelay.Observe(e.Delay.Seconds())
		},
		OnAdapterReturn: func(_ context.Context, e *domain.AdapterEvent) {
			status := "ok"
			if e.IsError {
				status = "error"
			}
			m.adapterCalls.WithLabelValues(e.Adapter, status).Inc()
			m.adapterLatency.WithLabelValues(e.Adapter).Observe(e.Duration.Seconds())
		},
		OnFreeze: func(context.Context, *domain.FreezeEvent) {
			m.frozen.Inc()
		},
	}
}
