package domain

// EventKind defines the category of an engine input.
type EventKind string

const (
	EventChoiceMade      EventKind = "choice_made"
	EventTextSubmitted   EventKind = "text_submitted"
	EventExternalResult  EventKind = "external_result"
	EventExternalFailure EventKind = "external_failure"
	EventContinue        EventKind = "continue"
)

// Adapter tags carried by external events.
const (
	AdapterAnalyze = "analyze"
	AdapterCharge  = "charge"
	AdapterNotify  = "notify"
)

// Event is a single input to the transition engine.
type Event struct {
	Kind EventKind `json:"kind"`

	// ChoiceID is set for EventChoiceMade. MessageID optionally scopes the
	// choice to the message its option was rendered on.
	ChoiceID  string `json:"choice_id,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`

	// Text is set for EventTextSubmitted.
	Text string `json:"text,omitempty"`

	// Tag, Payload and Reason describe adapter outcomes.
	Tag     string `json:"tag,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Reason  string `json:"reason,omitempty"`

	// Generation and Token are stamped by the host on asynchronous events.
	// Zero values skip the corresponding staleness check.
	Generation uint64 `json:"generation,omitempty"`
	Token      string `json:"token,omitempty"`
}

// ChoiceMade builds a choice event.
func ChoiceMade(choiceID string) Event {
	return Event{Kind: EventChoiceMade, ChoiceID: choiceID}
}

// ChoiceOn builds a choice event scoped to a specific message.
func ChoiceOn(messageID int64, choiceID string) Event {
	return Event{Kind: EventChoiceMade, ChoiceID: choiceID, MessageID: messageID}
}

// TextSubmitted builds a free-text event.
func TextSubmitted(text string) Event {
	return Event{Kind: EventTextSubmitted, Text: text}
}

// ExternalResult builds a successful adapter outcome.
func ExternalResult(tag string, payload any) Event {
	return Event{Kind: EventExternalResult, Tag: tag, Payload: payload}
}

// ExternalFailure builds a failed adapter outcome.
func ExternalFailure(tag, reason string) Event {
	return Event{Kind: EventExternalFailure, Tag: tag, Reason: reason}
}

// Continue builds the event a scheduled delay delivers.
func Continue() Event {
	return Event{Kind: EventContinue}
}

// Stamped returns a copy of e bound to a generation and token.
func (e Event) Stamped(generation uint64, token string) Event {
	e.Generation = generation
	e.Token = token
	return e
}

// FromUser reports whether the event originates from the visitor.
func (e Event) FromUser() bool {
	return e.Kind == EventChoiceMade || e.Kind == EventTextSubmitted
}
