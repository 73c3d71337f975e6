package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/internal/runtime"
	"github.com/aretw0/openstars/pkg/adapters/memory"
	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/ports"
	"github.com/aretw0/openstars/pkg/session"
)

// ErrClosed is returned once the orchestrator has been closed.
var ErrClosed = errors.New("orchestrator closed")

// chargeGuardTTL keeps charge keys long enough to outlive any session.
const chargeGuardTTL = 24 * time.Hour

// Reasons for rejections decided by the orchestrator rather than the engine.
const (
	// ReasonSuperseded rejects events enqueued before a later Open.
	ReasonSuperseded = "superseded"
	// ReasonQueueFull rejects visitor events once too many wait on a pending call.
	ReasonQueueFull = "queue_full"
)

// Receipt acknowledges an inbound event after the engine has judged it.
// Queued events arrived while an adapter call was pending and are applied
// once it settles.
type Receipt struct {
	Generation uint64 `json:"generation"`
	Rejected   bool   `json:"rejected,omitempty"`
	Queued     bool   `json:"queued,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Orchestrator hosts conversations: it owns the per-session actors, the
// session stores and the adapters the engine delegates to.
type Orchestrator struct {
	engine   *runtime.Engine
	sessions *session.Manager
	broker   *Broker

	analyzer ports.Analyzer
	payments ports.PaymentGateway
	notifier ports.Notifier
	guard    ports.ChargeGuard
	random   ports.Random

	hooks  domain.LifecycleHooks
	logger *slog.Logger

	composeMin time.Duration
	composeMax time.Duration
	timeouts   Timeouts
	inboxSize  int
	maxInput   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	actors map[string]*actor
	closed bool
}

// New creates an orchestrator around engine.
func New(engine *runtime.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:     engine,
		logger:     logging.NewNop(),
		composeMin: DefaultComposeMin,
		composeMax: DefaultComposeMax,
		timeouts:   DefaultTimeouts(),
		inboxSize:  DefaultInboxSize,
		maxInput:   DefaultMaxInputSize,
		actors:     make(map[string]*actor),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.engine == nil {
		o.engine = runtime.NewEngine()
	}
	if o.sessions == nil {
		o.sessions = session.NewManager(session.WithLogger(o.logger))
	}
	if o.broker == nil {
		o.broker = NewBroker(o.logger)
	}
	if o.guard == nil {
		o.guard = memory.NewChargeGuard(chargeGuardTTL)
	}
	if o.random == nil {
		o.random = runtime.NewRandom(uint64(time.Now().UnixNano()))
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())
	return o
}

// Open starts the conversation of id, or restarts it under a new generation.
// Pending results and timers of the previous generation are discarded.
func (o *Orchestrator) Open(ctx context.Context, id string) (uint64, error) {
	if id == "" {
		return 0, fmt.Errorf("open: empty session id")
	}
	a, err := o.actor(id, true)
	if err != nil {
		return 0, err
	}
	epoch := a.epoch.Add(1)
	a.interrupt()
	r, err := o.submit(ctx, a, command{open: true, epoch: epoch})
	return r.Generation, err
}

// ChoiceMade selects an option of the message currently awaiting a choice.
func (o *Orchestrator) ChoiceMade(ctx context.Context, id, choiceID string) (Receipt, error) {
	return o.send(ctx, id, domain.ChoiceMade(choiceID))
}

// ChooseOption selects an option rendered on a specific message. Choices on
// messages that no longer await an answer are rejected.
func (o *Orchestrator) ChooseOption(ctx context.Context, id string, messageID int64, choiceID string) (Receipt, error) {
	return o.send(ctx, id, domain.ChoiceOn(messageID, choiceID))
}

// TextSubmitted submits a free-text answer after sanitizing it.
func (o *Orchestrator) TextSubmitted(ctx context.Context, id, text string) (Receipt, error) {
	clean, err := SanitizeInput(text, o.maxInput)
	if err != nil {
		o.logger.Warn("Input rejected", "session_id", id, "size", len(text), "err", err)
		return Receipt{}, err
	}
	return o.send(ctx, id, domain.TextSubmitted(clean))
}

// Snapshot returns a copy of the current session of id.
func (o *Orchestrator) Snapshot(id string) (*domain.Session, error) {
	store, err := o.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return store.Session(), nil
}

// Timeline returns a copy of the messages appended so far.
func (o *Orchestrator) Timeline(id string) ([]domain.Message, error) {
	store, err := o.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return store.Timeline().Messages(), nil
}

// Subscribe streams the messages appended to id. Call the returned func to stop.
func (o *Orchestrator) Subscribe(id string) (<-chan MessageAppended, func()) {
	return o.broker.Subscribe(id)
}

// Sessions lists the live session ids.
func (o *Orchestrator) Sessions() []string {
	return o.sessions.List()
}

// Graph returns the dialogue graph.
func (o *Orchestrator) Graph() []domain.Edge {
	return o.engine.Graph()
}

// Close stops every actor and pending timer and waits for in-flight adapter
// calls to return.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	actors := make([]*actor, 0, len(o.actors))
	for _, a := range o.actors {
		actors = append(actors, a)
	}
	o.mu.Unlock()

	o.cancel()
	for _, a := range actors {
		a.stopTimers()
	}
	o.wg.Wait()
	return nil
}

func (o *Orchestrator) send(ctx context.Context, id string, ev domain.Event) (Receipt, error) {
	if _, err := o.sessions.Get(id); err != nil {
		return Receipt{}, err
	}
	a, err := o.actor(id, false)
	if err != nil {
		return Receipt{}, err
	}
	return o.submit(ctx, a, command{event: ev})
}

// actor returns the actor of id, starting it when create is set.
func (o *Orchestrator) actor(id string, create bool) (*actor, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrClosed
	}
	if a, ok := o.actors[id]; ok {
		return a, nil
	}
	if !create {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrSessionNotFound)
	}
	a := newActor(id, o.inboxSize)
	o.actors[id] = a
	o.wg.Add(1)
	go o.run(a)
	return a, nil
}

// submit enqueues cmd and waits for the actor to judge it.
func (o *Orchestrator) submit(ctx context.Context, a *actor, cmd command) (Receipt, error) {
	cmd.reply = make(chan reply, 1)
	if !cmd.open {
		cmd.epoch = a.epoch.Load()
	}
	select {
	case a.inbox <- cmd:
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case <-o.ctx.Done():
		return Receipt{}, ErrClosed
	}
	select {
	case r := <-cmd.reply:
		return r.receipt, r.err
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case <-o.ctx.Done():
		return Receipt{}, ErrClosed
	}
}

// deliver enqueues an engine-bound event produced by a timer or adapter.
func (o *Orchestrator) deliver(a *actor, ev domain.Event) {
	select {
	case a.inbox <- command{event: ev, epoch: a.epoch.Load()}:
	case <-o.ctx.Done():
	}
}

func (o *Orchestrator) base(t domain.HookType, s *domain.Session) domain.HookBase {
	return domain.HookBase{
		Timestamp:  time.Now(),
		Type:       t,
		SessionID:  s.ID,
		Generation: s.Generation,
	}
}
