package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/openstars/pkg/domain"
)

// AuditHooks logs every lifecycle event at Info (rejections at Debug).
func AuditHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition",
				"session_id", e.SessionID,
				"generation", e.Generation,
				"from", e.From.String(),
				"to", e.To.String(),
				"event", e.Event,
			)
		},
		OnReject: func(ctx context.Context, e *domain.RejectEvent) {
			logger.DebugContext(ctx, "event_rejected",
				"session_id", e.SessionID,
				"step", e.Step.String(),
				"event", e.Event,
				"reason", e.Reason,
			)
		},
		OnAdapterCall: func(ctx context.Context, e *domain.AdapterEvent) {
			logger.InfoContext(ctx, "adapter_call", "session_id", e.SessionID, "adapter", e.Adapter)
		},
		OnAdapterReturn: func(ctx context.Context, e *domain.AdapterEvent) {
			logger.InfoContext(ctx, "adapter_return",
				"session_id", e.SessionID,
				"adapter", e.Adapter,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
		OnFreeze: func(ctx context.Context, e *domain.FreezeEvent) {
			logger.ErrorContext(ctx, "session_frozen",
				"session_id", e.SessionID,
				"generation", e.Generation,
				"step", e.Step.String(),
				"err", e.Error,
			)
		},
	}
}
