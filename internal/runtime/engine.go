package runtime

import (
	"fmt"
	"time"

	"github.com/aretw0/openstars/pkg/catalog"
	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/ports"
)

// Reasons reported when a guard ignores an event.
const (
	ReasonFrozen           = "session_frozen"
	ReasonStaleGeneration  = "stale_generation"
	ReasonStaleToken       = "stale_token"
	ReasonNoPendingChoice  = "no_pending_choice"
	ReasonStaleChoice      = "stale_choice"
	ReasonUnknownChoice    = "unknown_choice"
	ReasonEmptyText        = "empty_text"
	ReasonNotAcceptingText = "not_accepting_text"
)

const (
	DefaultSampleSize        = 3
	DefaultContinuationDelay = 300 * time.Millisecond
	DefaultFallbackIndustry  = "Emerging Tech"
	DefaultPriceCents        = 4900
	DefaultCurrency          = "usd"

	// OfferPremiumIntros is the only paid offer.
	OfferPremiumIntros = "premium-intros"
)

// Engine is the pure transition function of the concierge.
// It never performs I/O: adapter calls, delays and notifications are
// returned as effects for the host to carry out.
type Engine struct {
	catalog          *catalog.Catalog
	random           ports.Random
	sampleSize       int
	continuation     time.Duration
	fallbackIndustry string
	priceCents       int64
	currency         string
}

// Option configures the Engine.
type Option func(*Engine)

// WithCatalog sets the candidate pools results are sampled from.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithRandom injects the randomness used for sampling.
func WithRandom(r ports.Random) Option {
	return func(e *Engine) {
		e.random = r
	}
}

// WithSampleSize sets how many profiles each results message carries.
func WithSampleSize(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.sampleSize = k
		}
	}
}

// WithContinuationDelay sets the pause before a follow-up prompt is revealed.
func WithContinuationDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.continuation = d
	}
}

// WithFallbackIndustry sets the label used when analysis yields nothing.
func WithFallbackIndustry(label string) Option {
	return func(e *Engine) {
		if label != "" {
			e.fallbackIndustry = label
		}
	}
}

// WithPrice sets the price of the premium offer.
func WithPrice(cents int64, currency string) Option {
	return func(e *Engine) {
		e.priceCents = cents
		if currency != "" {
			e.currency = currency
		}
	}
}

// NewEngine creates a new engine with defaults for every option.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		catalog:          catalog.Default(),
		random:           NewRandom(uint64(time.Now().UnixNano())),
		sampleSize:       DefaultSampleSize,
		continuation:     DefaultContinuationDelay,
		fallbackIndustry: DefaultFallbackIndustry,
		priceCents:       DefaultPriceCents,
		currency:         DefaultCurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of a transition.
type Result struct {
	// Session is the new snapshot. For rejected events it is the unchanged input.
	Session  *domain.Session
	Messages []domain.Message
	Effects  []domain.Effect

	Rejected bool
	Reason   string
}

// Start creates the initial session of a conversation.
func (e *Engine) Start(sessionID string, generation uint64) Result {
	t := e.begin(domain.NewSession(sessionID, generation), domain.Event{})
	t.say(copyGreeting, nil, nil)
	t.say(copyRolePrompt, roleOptions, nil)
	res, _ := t.result()
	return res
}

// Transition applies ev to current and returns the resulting session, the
// messages to append and the effects to schedule. current is never mutated.
//
// Events rejected by a guard produce a Result with Rejected set. An event that
// passes the guards but has no rule at the current step is an invariant
// violation and returns a *domain.TransitionError.
func (e *Engine) Transition(current *domain.Session, ev domain.Event) (Result, error) {
	if current == nil {
		return Result{}, fmt.Errorf("transition: %w", domain.ErrSessionNotFound)
	}
	if current.Frozen {
		return reject(current, ReasonFrozen), nil
	}
	if ev.Generation != 0 && ev.Generation != current.Generation {
		return reject(current, ReasonStaleGeneration), nil
	}

	switch ev.Kind {
	case domain.EventChoiceMade:
		return e.handleChoice(current, ev)
	case domain.EventTextSubmitted:
		return e.handleText(current, ev)
	case domain.EventExternalResult, domain.EventExternalFailure:
		return e.handleExternal(current, ev)
	case domain.EventContinue:
		return e.handleContinue(current, ev)
	}
	return Result{}, violation(current, ev, fmt.Errorf("unknown event kind %q", ev.Kind))
}

// Graph returns the permitted hops between vertices.
func (e *Engine) Graph() []domain.Edge {
	return append([]domain.Edge(nil), edges...)
}

func reject(s *domain.Session, reason string) Result {
	return Result{Session: s, Rejected: true, Reason: reason}
}

func violation(s *domain.Session, ev domain.Event, cause error) error {
	return &domain.TransitionError{Step: s.Step, Event: ev.Kind, Tag: ev.Tag, Cause: cause}
}

// tx accumulates the output of one transition.
type tx struct {
	e        *Engine
	current  *domain.Session
	ev       domain.Event
	next     *domain.Session
	messages []domain.Message
	effects  []domain.Effect
	err      error
}

func (e *Engine) begin(current *domain.Session, ev domain.Event) *tx {
	return &tx{e: e, current: current, ev: ev, next: current.Clone()}
}

// enter moves the session to step. Hops missing from the graph poison the tx.
func (t *tx) enter(step domain.Step) {
	if t.err != nil {
		return
	}
	if !step.Valid() || !allowed(t.next.Step.Kind, step.Kind) {
		t.err = fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStep, t.next.Step, step)
		return
	}
	t.next.Step = step
	t.next.History = append(t.next.History, step)
}

func (t *tx) say(body string, options []domain.Choice, results []domain.Profile) {
	t.next.LastMessageID++
	msg := domain.Message{
		ID:      t.next.LastMessageID,
		Sender:  domain.SenderBot,
		Body:    body,
		Options: options,
		Results: results,
	}
	msg = msg.Clone()
	if len(options) > 0 {
		t.next.AwaitingMessageID = msg.ID
		t.next.AwaitingOptions = append([]domain.Choice(nil), options...)
	}
	t.messages = append(t.messages, msg)
}

func (t *tx) echo(body string) {
	t.next.LastMessageID++
	t.messages = append(t.messages, domain.Message{
		ID:     t.next.LastMessageID,
		Sender: domain.SenderUser,
		Body:   body,
	})
}

// consume clears the awaiting option set so it cannot be selected twice.
func (t *tx) consume() {
	t.next.AwaitingMessageID = 0
	t.next.AwaitingOptions = nil
}

func (t *tx) set(key, value string) {
	if t.err != nil {
		return
	}
	if _, exists := t.next.Answers[key]; exists {
		t.err = fmt.Errorf("%w: %s", domain.ErrAnswerRetracted, key)
		return
	}
	t.next.Answers[key] = value
}

func (t *tx) token(kind string) string {
	return fmt.Sprintf("%s:%d:%s:%d", t.next.ID, t.next.Generation, kind, t.next.LastMessageID)
}

func (t *tx) invoke(name string, args map[string]any, idempotencyKey string) {
	id := t.token(name)
	t.next.PendingToken = id
	t.effects = append(t.effects, domain.InvokeAdapter(domain.AdapterCall{
		ID:             id,
		Name:           name,
		Args:           args,
		IdempotencyKey: idempotencyKey,
	}))
}

// after schedules a continuation that reveals the next prompt.
func (t *tx) after() {
	id := t.token("continue")
	t.next.PendingToken = id
	t.effects = append(t.effects, domain.ScheduleDelay(t.e.continuation, domain.Continue().Stamped(t.next.Generation, id)))
}

func (t *tx) settle() {
	t.next.PendingToken = ""
}

func (t *tx) result() (Result, error) {
	if t.err != nil {
		return Result{}, violation(t.current, t.ev, t.err)
	}
	return Result{
		Session:  t.next,
		Messages: t.messages,
		Effects:  t.effects,
	}, nil
}
