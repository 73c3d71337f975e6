package domain

import (
	"context"
	"time"
)

// HookType defines the category of a lifecycle notification.
type HookType string

const (
	HookTransition    HookType = "transition"
	HookReject        HookType = "reject"
	HookCompose       HookType = "compose"
	HookAdapterCall   HookType = "adapter_call"
	HookAdapterReturn HookType = "adapter_return"
	HookFreeze        HookType = "freeze"
)

// HookBase contains common fields for all lifecycle notifications.
type HookBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       HookType  `json:"type"`
	SessionID  string    `json:"session_id"`
	Generation uint64    `json:"generation"`
}

// TransitionEvent reports a completed transition.
type TransitionEvent struct {
	HookBase
	From     Step      `json:"from"`
	To       Step      `json:"to"`
	Event    EventKind `json:"event"`
	Messages int       `json:"messages"`
	Premium  bool      `json:"premium,omitempty"`
}

// RejectEvent reports an event ignored by a guard.
type RejectEvent struct {
	HookBase
	Step   Step      `json:"step"`
	Event  EventKind `json:"event"`
	Reason string    `json:"reason"`
}

// ComposeEvent reports the simulated typing pause before a bot message.
type ComposeEvent struct {
	HookBase
	MessageID int64         `json:"message_id"`
	Delay     time.Duration `json:"delay"`
}

// AdapterEvent reports an external service call.
type AdapterEvent struct {
	HookBase
	Adapter  string        `json:"adapter"`
	CallID   string        `json:"call_id"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// FreezeEvent reports an invariant violation that froze a session.
type FreezeEvent struct {
	HookBase
	Step  Step   `json:"step"`
	Error string `json:"error"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
type LifecycleHooks struct {
	OnTransition    func(context.Context, *TransitionEvent)
	OnReject        func(context.Context, *RejectEvent)
	OnCompose       func(context.Context, *ComposeEvent)
	OnAdapterCall   func(context.Context, *AdapterEvent)
	OnAdapterReturn func(context.Context, *AdapterEvent)
	OnFreeze        func(context.Context, *FreezeEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition:    chain(h.OnTransition, other.OnTransition),
		OnReject:        chain(h.OnReject, other.OnReject),
		OnCompose:       chain(h.OnCompose, other.OnCompose),
		OnAdapterCall:   chain(h.OnAdapterCall, other.OnAdapterCall),
		OnAdapterReturn: chain(h.OnAdapterReturn, other.OnAdapterReturn),
		OnFreeze:        chain(h.OnFreeze, other.OnFreeze),
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, ev T) {
		a(ctx, ev)
		b(ctx, ev)
	}
}
