package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/openstars/internal/runtime"
	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/session"
	"github.com/google/uuid"
)

type reply struct {
	receipt Receipt
	err     error
}

// command is one inbox entry: either a (re)open or an engine event.
// epoch is the number of opens seen when the command was enqueued.
type command struct {
	open  bool
	epoch uint64
	event domain.Event
	reply chan reply
}

func (c command) respond(r Receipt, err error) {
	if c.reply != nil {
		c.reply <- reply{receipt: r, err: err}
	}
}

// actor serializes everything that happens to one session id.
type actor struct {
	id    string
	inbox chan command

	// epoch counts Open calls. Commands enqueued before the latest open are skipped.
	epoch atomic.Uint64

	// deferred holds visitor events that arrived while an adapter call or
	// continuation was pending. Only the run goroutine touches it.
	deferred []command

	mu     sync.Mutex
	stop   context.CancelFunc
	timers map[*time.Timer]struct{}
}

func newActor(id string, size int) *actor {
	return &actor{
		id:     id,
		inbox:  make(chan command, size),
		timers: make(map[*time.Timer]struct{}),
	}
}

// begin returns the context of the work about to run. interrupt cancels it,
// and so does an open that arrived after the command was enqueued.
func (a *actor) begin(parent context.Context, epoch uint64) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	a.mu.Lock()
	a.stop = cancel
	a.mu.Unlock()
	if epoch < a.epoch.Load() {
		cancel()
	}
	return ctx, func() {
		a.mu.Lock()
		a.stop = nil
		a.mu.Unlock()
		cancel()
	}
}

// interrupt cuts short the composing pauses of the work in progress.
func (a *actor) interrupt() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		a.stop()
	}
}

func (a *actor) schedule(d time.Duration, fire func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		a.mu.Lock()
		delete(a.timers, t)
		a.mu.Unlock()
		fire()
	})
	a.timers[t] = struct{}{}
}

func (a *actor) stopTimers() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for t := range a.timers {
		t.Stop()
		delete(a.timers, t)
	}
}

func (o *Orchestrator) run(a *actor) {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			return
		case cmd := <-a.inbox:
			switch {
			case cmd.open:
				o.restart(a, cmd)
			case cmd.epoch < a.epoch.Load():
				cmd.respond(Receipt{Rejected: true, Reason: ReasonSuperseded}, nil)
				o.logger.Debug("Event superseded by open", "session_id", a.id, "event", cmd.event.Kind)
			default:
				o.apply(a, cmd)
			}
			o.replay(a)
		}
	}
}

// replay applies deferred visitor events, oldest first, for as long as the
// session is not waiting on anything.
func (o *Orchestrator) replay(a *actor) {
	for len(a.deferred) > 0 {
		store, err := o.sessions.Get(a.id)
		if err != nil {
			a.deferred = nil
			return
		}
		if s := store.Session(); s.PendingToken != "" && !s.Frozen {
			return
		}
		cmd := a.deferred[0]
		a.deferred = a.deferred[1:]
		o.apply(a, cmd)
	}
}

// postpone parks a visitor event until the pending call settles.
func (o *Orchestrator) postpone(a *actor, cmd command, current *domain.Session) {
	if len(a.deferred) >= o.inboxSize {
		cmd.respond(Receipt{Generation: current.Generation, Rejected: true, Reason: ReasonQueueFull}, nil)
		o.logger.Warn("Deferred queue full", "session_id", current.ID, "generation", current.Generation, "event", cmd.event.Kind)
		return
	}
	cmd.respond(Receipt{Generation: current.Generation, Queued: true}, nil)
	cmd.reply = nil
	a.deferred = append(a.deferred, cmd)
	o.logger.Debug("Event deferred", "session_id", current.ID, "generation", current.Generation,
		"step", current.Step.String(), "event", cmd.event.Kind, "pending", current.PendingToken)
}

func (o *Orchestrator) restart(a *actor, cmd command) {
	a.stopTimers()
	a.deferred = nil

	var start runtime.Result
	store, err := o.sessions.Reset(a.id, func(gen uint64) *domain.Session {
		start = o.engine.Start(a.id, gen)
		start.Session.Nonce = uuid.NewString()
		return start.Session
	})
	if err != nil {
		cmd.respond(Receipt{}, err)
		return
	}
	cmd.respond(Receipt{Generation: start.Session.Generation}, nil)
	o.logger.Info("Session opened", "session_id", a.id, "generation", start.Session.Generation)

	ctx, done := a.begin(o.ctx, cmd.epoch)
	defer done()
	if ok, err := o.emit(ctx, store, start.Session, start.Messages); err != nil {
		o.freeze(store, start.Session, err)
	} else if ok {
		o.dispatch(a, start.Session, start.Effects)
	}
}

func (o *Orchestrator) apply(a *actor, cmd command) {
	store, err := o.sessions.Get(a.id)
	if err != nil {
		cmd.respond(Receipt{}, err)
		return
	}
	current := store.Session()

	res, err := o.engine.Transition(current, cmd.event)
	if err != nil {
		cmd.respond(Receipt{Generation: current.Generation}, err)
		o.freeze(store, current, err)
		return
	}
	if res.Rejected && deferrable(cmd.event, current, res.Reason) {
		o.postpone(a, cmd, current)
		return
	}
	if res.Rejected {
		cmd.respond(Receipt{Generation: current.Generation, Rejected: true, Reason: res.Reason}, nil)
		o.logger.Debug("Event ignored", "session_id", current.ID, "generation", current.Generation,
			"step", current.Step.String(), "event", cmd.event.Kind, "reason", res.Reason)
		if o.hooks.OnReject != nil {
			o.hooks.OnReject(o.ctx, &domain.RejectEvent{
				HookBase: o.base(domain.HookReject, current),
				Step:     current.Step,
				Event:    cmd.event.Kind,
				Reason:   res.Reason,
			})
		}
		return
	}
	cmd.respond(Receipt{Generation: current.Generation}, nil)

	ctx, done := a.begin(o.ctx, cmd.epoch)
	defer done()
	ok, err := o.emit(ctx, store, current, res.Messages)
	if err != nil {
		o.freeze(store, current, err)
		return
	}
	if !ok {
		return
	}
	if err := store.Advance(res.Session); err != nil {
		o.freeze(store, current, err)
		return
	}

	o.logger.Debug("Transition", "session_id", current.ID, "generation", current.Generation,
		"event", cmd.event.Kind, "from", current.Step.String(), "to", res.Session.Step.String())
	if o.hooks.OnTransition != nil {
		o.hooks.OnTransition(o.ctx, &domain.TransitionEvent{
			HookBase: o.base(domain.HookTransition, current),
			From:     current.Step,
			To:       res.Session.Step,
			Event:    cmd.event.Kind,
			Messages: len(res.Messages),
			Premium:  res.Session.PremiumUnlocked,
		})
	}
	o.dispatch(a, res.Session, res.Effects)
}

// deferrable reports whether a visitor event was turned away only because the
// session is waiting on an adapter call or continuation.
func deferrable(ev domain.Event, current *domain.Session, reason string) bool {
	if !ev.FromUser() || current.Frozen || current.PendingToken == "" {
		return false
	}
	return reason == runtime.ReasonNotAcceptingText || reason == runtime.ReasonNoPendingChoice
}

// emit appends msgs in order. Bot messages wait for a composing pause first.
// It reports false when the work was interrupted by a restart or Close.
func (o *Orchestrator) emit(ctx context.Context, store *session.Store, owner *domain.Session, msgs []domain.Message) (bool, error) {
	for _, msg := range msgs {
		if msg.FromBot() {
			d := o.composeDelay()
			if o.hooks.OnCompose != nil {
				o.hooks.OnCompose(o.ctx, &domain.ComposeEvent{
					HookBase:  o.base(domain.HookCompose, owner),
					MessageID: msg.ID,
					Delay:     d,
				})
			}
			if !sleep(ctx, d) {
				return false, nil
			}
		}
		if err := store.Append(msg); err != nil {
			return false, err
		}
		o.broker.Publish(MessageAppended{SessionID: owner.ID, Generation: owner.Generation, Message: msg})
	}
	return true, nil
}

func (o *Orchestrator) freeze(store *session.Store, s *domain.Session, cause error) {
	store.Freeze()

	attrs := []any{"session_id", s.ID, "generation", s.Generation, "step", s.Step.String(), "err", cause}
	var te *domain.TransitionError
	if errors.As(cause, &te) {
		attrs = append(attrs, "event", te.Event)
	}
	o.logger.Error("Session frozen", attrs...)
	if o.hooks.OnFreeze != nil {
		o.hooks.OnFreeze(o.ctx, &domain.FreezeEvent{
			HookBase: o.base(domain.HookFreeze, s),
			Step:     s.Step,
			Error:    cause.Error(),
		})
	}
}
