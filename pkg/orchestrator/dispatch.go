package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/openstars/pkg/domain"
)

// Reasons shown to the visitor when an adapter fails. Raw errors are only logged.
const (
	reasonTimedOut     = "the provider timed out"
	reasonUnavailable  = "the provider is unavailable"
	reasonNotAvailable = "service not configured"
	reasonDuplicate    = "this offer was already charged"
)

// dispatch carries out the effects of a committed transition.
func (o *Orchestrator) dispatch(a *actor, s *domain.Session, effects []domain.Effect) {
	for _, eff := range effects {
		switch eff.Kind {
		case domain.EffectScheduleDelay:
			then := *eff.Then
			a.schedule(eff.Delay, func() { o.deliver(a, then) })
		case domain.EffectInvokeAdapter:
			call := *eff.Call
			o.wg.Add(1)
			go o.invoke(a, s, call)
		case domain.EffectNotify:
			record := *eff.Record
			o.wg.Add(1)
			go o.notify(s, record)
		default:
			o.logger.Warn("Unknown effect", "session_id", s.ID, "kind", eff.Kind)
		}
	}
}

// invoke performs one adapter call and queues its outcome, stamped with the
// generation and token that requested it.
func (o *Orchestrator) invoke(a *actor, s *domain.Session, call domain.AdapterCall) {
	defer o.wg.Done()

	o.adapterHook(o.hooks.OnAdapterCall, domain.HookAdapterCall, s, call.Name, call.ID, 0, "")
	start := time.Now()

	var ev domain.Event
	switch call.Name {
	case domain.AdapterAnalyze:
		ev = o.analyze(o.ctx, s, call)
	case domain.AdapterCharge:
		ev = o.charge(o.ctx, s, call)
	default:
		ev = domain.ExternalFailure(call.Name, reasonNotAvailable)
	}

	errText := ""
	if ev.Kind == domain.EventExternalFailure {
		errText = ev.Reason
	}
	o.adapterHook(o.hooks.OnAdapterReturn, domain.HookAdapterReturn, s, call.Name, call.ID, time.Since(start), errText)
	o.deliver(a, ev.Stamped(s.Generation, call.ID))
}

func (o *Orchestrator) analyze(ctx context.Context, s *domain.Session, call domain.AdapterCall) domain.Event {
	if o.analyzer == nil {
		return domain.ExternalFailure(call.Name, reasonNotAvailable)
	}
	url, _ := call.Args["url"].(string)

	ctx, cancel := context.WithTimeout(ctx, o.timeouts.Analyze)
	defer cancel()
	label, err := o.analyzer.Analyze(ctx, url)
	if err != nil {
		o.logger.Warn("Analysis failed", "session_id", s.ID, "generation", s.Generation, "adapter", call.Name, "err", err)
		return domain.ExternalFailure(call.Name, failureReason(err))
	}
	return domain.ExternalResult(call.Name, label)
}

// charge issues at most one charge per idempotency key and never retries.
// A key that was already used fails the call without reaching the gateway.
func (o *Orchestrator) charge(ctx context.Context, s *domain.Session, call domain.AdapterCall) domain.Event {
	if o.payments == nil {
		return domain.ExternalFailure(call.Name, reasonNotAvailable)
	}

	acquired, err := o.guard.Acquire(ctx, call.IdempotencyKey)
	if err != nil {
		o.logger.Error("Charge guard failed", "session_id", s.ID, "generation", s.Generation, "err", err)
		return domain.ExternalFailure(call.Name, reasonUnavailable)
	}
	if !acquired {
		o.logger.Warn("Duplicate charge suppressed", "session_id", s.ID, "generation", s.Generation, "key", call.IdempotencyKey)
		return domain.ExternalFailure(call.Name, reasonDuplicate)
	}

	req := domain.ChargeRequest{
		SessionID:      s.ID,
		Offer:          stringArg(call.Args, "offer"),
		AmountCents:    centsArg(call.Args, "amount_cents"),
		Currency:       stringArg(call.Args, "currency"),
		Description:    "OpenStars premium introductions",
		IdempotencyKey: call.IdempotencyKey,
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeouts.Charge)
	defer cancel()
	outcome, err := o.payments.Charge(ctx, req)
	if err != nil {
		o.logger.Warn("Charge failed", "session_id", s.ID, "generation", s.Generation, "err", err)
		return domain.ExternalFailure(call.Name, failureReason(err))
	}
	o.logger.Info("Charge settled", "session_id", s.ID, "generation", s.Generation,
		"approved", outcome.Approved, "reference", outcome.Reference)
	return domain.ExternalResult(call.Name, outcome)
}

// notify delivers the lead record. Failures are logged and never reach the session.
func (o *Orchestrator) notify(s *domain.Session, record domain.LeadRecord) {
	defer o.wg.Done()

	o.adapterHook(o.hooks.OnAdapterCall, domain.HookAdapterCall, s, domain.AdapterNotify, s.ID, 0, "")
	if o.notifier == nil {
		o.logger.Info("Lead completed", "session_id", s.ID, "generation", s.Generation, "role", record.Role)
		o.adapterHook(o.hooks.OnAdapterReturn, domain.HookAdapterReturn, s, domain.AdapterNotify, s.ID, 0, "")
		return
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}

	// Delivery outlives Close, bounded by the notify timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(o.ctx), o.timeouts.Notify)
	defer cancel()

	start := time.Now()
	errText := ""
	if err := o.notifier.Notify(ctx, record); err != nil {
		errText = err.Error()
		o.logger.Error("Notification failed", "session_id", s.ID, "generation", s.Generation, "adapter", domain.AdapterNotify, "err", err)
	}
	o.adapterHook(o.hooks.OnAdapterReturn, domain.HookAdapterReturn, s, domain.AdapterNotify, s.ID, time.Since(start), errText)
}

func (o *Orchestrator) adapterHook(fn func(context.Context, *domain.AdapterEvent), t domain.HookType, s *domain.Session, name, callID string, d time.Duration, errText string) {
	if fn == nil {
		return
	}
	fn(o.ctx, &domain.AdapterEvent{
		HookBase: o.base(t, s),
		Adapter:  name,
		CallID:   callID,
		Duration: d,
		IsError:  errText != "",
		Error:    errText,
	})
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return reasonTimedOut
	}
	return reasonUnavailable
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func centsArg(args map[string]any, key string) int64 {
	switch v := args[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
