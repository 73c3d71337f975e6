package domain

import "time"

// EffectKind defines the category of work requested from the host.
type EffectKind string

const (
	EffectInvokeAdapter EffectKind = "invoke_adapter"
	EffectScheduleDelay EffectKind = "schedule_delay"
	EffectNotify        EffectKind = "notify"
)

// AdapterCall represents a request from the engine to the host to call an
// external service. Its outcome comes back as an external event.
type AdapterCall struct {
	ID             string         `json:"id"`   // Token the outcome must echo
	Name           string         `json:"name"` // Adapter tag
	Args           map[string]any `json:"args,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// Effect is work the engine schedules but never performs itself.
type Effect struct {
	Kind EffectKind `json:"kind"`

	// Call is set for EffectInvokeAdapter.
	Call *AdapterCall `json:"call,omitempty"`

	// Delay and Then are set for EffectScheduleDelay. Then.Token identifies
	// the continuation.
	Delay time.Duration `json:"delay,omitempty"`
	Then  *Event        `json:"then,omitempty"`

	// Record is set for EffectNotify.
	Record *LeadRecord `json:"record,omitempty"`
}

// InvokeAdapter builds an adapter effect.
func InvokeAdapter(call AdapterCall) Effect {
	return Effect{Kind: EffectInvokeAdapter, Call: &call}
}

// ScheduleDelay builds a delayed continuation.
func ScheduleDelay(d time.Duration, then Event) Effect {
	return Effect{Kind: EffectScheduleDelay, Delay: d, Then: &then}
}

// Notify builds a fire-and-forget notification.
func Notify(record LeadRecord) Effect {
	return Effect{Kind: EffectNotify, Record: &record}
}
