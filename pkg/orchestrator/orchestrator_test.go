package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/openstars/internal/runtime"
	"github.com/aretw0/openstars/pkg/adapters/memory"
	"github.com/aretw0/openstars/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	label   string
	err     error
	release chan struct{}
	calls   atomic.Int32
}

func (a *stubAnalyzer) Analyze(ctx context.Context, url string) (string, error) {
	a.calls.Add(1)
	if a.release != nil {
		select {
		case <-a.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return a.label, a.err
}

type stubGateway struct {
	mu       sync.Mutex
	requests []domain.ChargeRequest
	outcome  domain.ChargeOutcome
	err      error
}

func (g *stubGateway) Charge(ctx context.Context, req domain.ChargeRequest) (domain.ChargeOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.outcome, g.err
}

func (g *stubGateway) Requests() []domain.ChargeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.ChargeRequest(nil), g.requests...)
}

type stubNotifier struct {
	mu      sync.Mutex
	records []domain.LeadRecord
	err     error
}

func (n *stubNotifier) Notify(ctx context.Context, rec domain.LeadRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, rec)
	return n.err
}

func (n *stubNotifier) Records() []domain.LeadRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.LeadRecord(nil), n.records...)
}

func newTestOrchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	engine := runtime.NewEngine(
		runtime.WithRandom(runtime.NewRandom(1)),
		runtime.WithContinuationDelay(time.Millisecond),
	)
	base := []Option{
		WithComposeDelay(0, 0),
		WithRandom(runtime.NewRandom(2)),
		WithAnalyzer(&stubAnalyzer{label: "Fintech"}),
	}
	o := New(engine, append(base, opts...)...)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func waitFor(t *testing.T, o *Orchestrator, id string, step domain.Step) *domain.Session {
	t.Helper()
	var snap *domain.Session
	require.Eventually(t, func() bool {
		s, err := o.Snapshot(id)
		if err != nil {
			return false
		}
		snap = s
		return s.Step == step
	}, 2*time.Second, 2*time.Millisecond, "session %s never reached %s", id, step)
	return snap
}

func choose(t *testing.T, o *Orchestrator, id, choice string) {
	t.Helper()
	r, err := o.ChoiceMade(context.Background(), id, choice)
	require.NoError(t, err)
	require.False(t, r.Rejected, "choice %q rejected: %s", choice, r.Reason)
}

func submit(t *testing.T, o *Orchestrator, id, text string) {
	t.Helper()
	r, err := o.TextSubmitted(context.Background(), id, text)
	require.NoError(t, err)
	require.False(t, r.Rejected, "text %q rejected: %s", text, r.Reason)
}

func driveToUpsell(t *testing.T, o *Orchestrator, id string) {
	t.Helper()
	_, err := o.Open(context.Background(), id)
	require.NoError(t, err)

	choose(t, o, id, runtime.RoleFounder)
	choose(t, o, id, runtime.GoalFundraise)
	submit(t, o, id, "https://acme.ai")
	waitFor(t, o, id, domain.DetailCapture(domain.FieldTraction))
	submit(t, o, id, "10k MRR")
	submit(t, o, id, "Seed")
	submit(t, o, id, "Ada Lovelace")
	submit(t, o, id, "+1 555 0100")
	waitFor(t, o, id, domain.At(domain.StepUpsellOffer))
}

func TestOrchestrator_FounderRunWithPayment(t *testing.T) {
	gateway := &stubGateway{outcome: domain.ChargeOutcome{Approved: true, Reference: "ch_1"}}
	notifier := &stubNotifier{}
	o := newTestOrchestrator(t, WithPaymentGateway(gateway), WithNotifier(notifier))

	driveToUpsell(t, o, "v1")
	choose(t, o, "v1", runtime.ChoicePay)
	waitFor(t, o, "v1", domain.At(domain.StepEmailCapture))
	submit(t, o, "v1", "ada@example.com")
	final := waitFor(t, o, "v1", domain.At(domain.StepConfirmation))

	assert.True(t, final.PremiumUnlocked)
	assert.Equal(t, "Fintech", final.Answers[domain.AnswerIndustry])

	reqs := gateway.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "v1:1:"+final.Nonce+":premium-intros", reqs[0].IdempotencyKey)
	assert.NotEmpty(t, final.Nonce)
	assert.Equal(t, int64(runtime.DefaultPriceCents), reqs[0].AmountCents)
	assert.Equal(t, runtime.DefaultCurrency, reqs[0].Currency)

	require.Eventually(t, func() bool { return len(notifier.Records()) == 1 }, time.Second, 2*time.Millisecond)
	rec := notifier.Records()[0]
	assert.Equal(t, "founder", rec.Role)
	assert.True(t, rec.PremiumUnlocked)
	assert.Equal(t, "ada@example.com", rec.Answers[string(domain.FieldEmail)])
	assert.False(t, rec.SubmittedAt.IsZero())

	msgs, err := o.Timeline("v1")
	require.NoError(t, err)
	for i := 1; i < len(msgs); i++ {
		assert.Less(t, msgs[i-1].ID, msgs[i].ID)
	}
	assert.Equal(t, final.LastMessageID, msgs[len(msgs)-1].ID)
}

func TestOrchestrator_ComposeDelayWithinBounds(t *testing.T) {
	const lo, hi = 2 * time.Millisecond, 6 * time.Millisecond

	var mu sync.Mutex
	var delays []time.Duration
	hooks := domain.LifecycleHooks{
		OnCompose: func(_ context.Context, ev *domain.ComposeEvent) {
			mu.Lock()
			defer mu.Unlock()
			delays = append(delays, ev.Delay)
		},
	}
	o := newTestOrchestrator(t, WithComposeDelay(lo, hi), WithHooks(hooks))

	started := time.Now()
	_, err := o.Open(context.Background(), "v1")
	require.NoError(t, err)
	choose(t, o, "v1", runtime.RoleInvestor)
	waitFor(t, o, "v1", domain.At(domain.StepInvestorFocus))

	require.Eventually(t, func() bool {
		msgs, _ := o.Timeline("v1")
		return len(msgs) == 4
	}, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(started), 3*lo, "three bot messages each wait at least the minimum")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delays, 3)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, lo)
		assert.LessOrEqual(t, d, hi)
	}
}

func TestOrchestrator_UserEchoIsNotDelayed(t *testing.T) {
	var composed atomic.Int32
	hooks := domain.LifecycleHooks{
		OnCompose: func(context.Context, *domain.ComposeEvent) { composed.Add(1) },
	}
	o := newTestOrchestrator(t, WithHooks(hooks))

	_, err := o.Open(context.Background(), "v1")
	require.NoError(t, err)
	choose(t, o, "v1", runtime.RoleFounder)
	waitFor(t, o, "v1", domain.At(domain.StepFounderGoal))

	msgs, err := o.Timeline("v1")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, domain.SenderUser, msgs[2].Sender)
	assert.Equal(t, int32(3), composed.Load())
}

func TestOrchestrator_DuplicatePayClickChargesOnce(t *testing.T) {
	gateway := &stubGateway{outcome: domain.ChargeOutcome{Approved: true}}
	o := newTestOrchestrator(t, WithPaymentGateway(gateway))
	driveToUpsell(t, o, "v1")

	var rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := o.ChoiceMade(context.Background(), "v1", runtime.ChoicePay)
			assert.NoError(t, err)
			if r.Rejected || r.Queued {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	waitFor(t, o, "v1", domain.At(domain.StepEmailCapture))
	assert.Equal(t, int32(1), rejected.Load())
	assert.Len(t, gateway.Requests(), 1)
}

func TestOrchestrator_ChargeGuardRefusalFallsBack(t *testing.T) {
	guard := memory.NewChargeGuard(time.Hour)
	gateway := &stubGateway{outcome: domain.ChargeOutcome{Approved: true}}
	o := newTestOrchestrator(t, WithPaymentGateway(gateway), WithChargeGuard(guard))
	driveToUpsell(t, o, "v1")

	snap, err := o.Snapshot("v1")
	require.NoError(t, err)
	ok, err := guard.Acquire(context.Background(), "v1:1:"+snap.Nonce+":premium-intros")
	require.NoError(t, err)
	require.True(t, ok)

	choose(t, o, "v1", runtime.ChoicePay)
	s := waitFor(t, o, "v1", domain.At(domain.StepEmailCapture))
	assert.False(t, s.PremiumUnlocked)
	assert.Contains(t, s.History, domain.At(domain.StepPaymentFailed))
	assert.Empty(t, gateway.Requests())

	msgs, err := o.Timeline("v1")
	require.NoError(t, err)
	found := false
	for _, m := range msgs {
		found = found || strings.Contains(m.Body, reasonDuplicate)
	}
	assert.True(t, found)
}

func TestOrchestrator_SharedGuardAcrossProcesses(t *testing.T) {
	guard := memory.NewChargeGuard(time.Hour)
	var keys []string
	for i := 0; i < 2; i++ {
		gateway := &stubGateway{outcome: domain.ChargeOutcome{Approved: true}}
		o := newTestOrchestrator(t, WithPaymentGateway(gateway), WithChargeGuard(guard))
		driveToUpsell(t, o, "v1")
		choose(t, o, "v1", runtime.ChoicePay)

		s := waitFor(t, o, "v1", domain.At(domain.StepEmailCapture))
		assert.True(t, s.PremiumUnlocked)
		require.Len(t, gateway.Requests(), 1)
		keys = append(keys, gateway.Requests()[0].IdempotencyKey)
	}
	assert.NotEqual(t, keys[0], keys[1])
}

func TestOrchestrator_DeclinedChargeFallsBack(t *testing.T) {
	gateway := &stubGateway{err: errors.New("connection refused")}
	o := newTestOrchestrator(t, WithPaymentGateway(gateway))
	driveToUpsell(t, o, "v1")
	choose(t, o, "v1", runtime.ChoicePay)

	s := waitFor(t, o, "v1", domain.At(domain.StepEmailCapture))
	assert.False(t, s.PremiumUnlocked)
	assert.Contains(t, s.History, domain.At(domain.StepPaymentFailed))

	msgs, err := o.Timeline("v1")
	require.NoError(t, err)
	failures := 0
	for _, m := range msgs {
		assert.NotContains(t, m.Body, "connection refused", "raw errors stay in the logs")
		if strings.Contains(m.Body, reasonUnavailable) {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestOrchestrator_AnalysisFailureUsesFallback(t *testing.T) {
	o := newTestOrchestrator(t, WithAnalyzer(&stubAnalyzer{err: errors.New("boom")}))

	_, err := o.Open(context.Background(), "v1")
	require.NoError(t, err)
	choose(t, o, "v1", runtime.RoleInvestor)
	choose(t, o, "v1", runtime.FocusDealFlow)
	submit(t, o, "v1", "https://fund.vc")

	s := waitFor(t, o, "v1", domain.DetailCapture(domain.FieldCheckSize))
	assert.Equal(t, runtime.DefaultFallbackIndustry, s.Answers[domain.AnswerIndustry])
}

func TestOrchestrator_RestartDiscardsLateResult(t *testing.T) {
	analyzer := &stubAnalyzer{label: "Fintech", release: make(chan struct{})}

	var mu sync.Mutex
	var reasons []string
	hooks := domain.LifecycleHooks{
		OnReject: func(_ context.Context, ev *domain.RejectEvent) {
			mu.Lock()
			defer mu.Unlock()
			reasons = append(reasons, ev.Reason)
		},
	}
	o := newTestOrchestrator(t, WithAnalyzer(analyzer), WithHooks(hooks))

	_, err := o.Open(context.Background(), "v1")
	require.NoError(t, err)
	choose(t, o, "v1", runtime.RoleFounder)
	choose(t, o, "v1", runtime.GoalFundraise)
	submit(t, o, "v1", "https://acme.ai")
	waitFor(t, o, "v1", domain.At(domain.StepExternalAnalysis))
	require.Eventually(t, func() bool { return analyzer.calls.Load() == 1 }, time.Second, time.Millisecond)

	gen, err := o.Open(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gen)
	close(analyzer.release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, r := range reasons {
			if r == runtime.ReasonStaleGeneration {
				return true
			}
		}
		return false
	}, time.Second, 2*time.Millisecond)

	s, err := o.Snapshot("v1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.Generation)
	assert.Equal(t, domain.At(domain.StepWelcome), s.Step)
	assert.Empty(t, s.Answers)
}

func TestOrchestrator_NotifyFailureStillConfirms(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("smtp down")}

	var failed atomic.Bool
	hooks := domain.LifecycleHooks{
		OnAdapterReturn: func(_ context.Context, ev *domain.AdapterEvent) {
			if ev.Adapter == domain.AdapterNotify && ev.IsError {
				failed.Store(true)
			}
		},
	}
	o := newTestOrchestrator(t, WithNotifier(notifier), WithHooks(hooks))
	driveToUpsell(t, o, "v1")
	choose(t, o, "v1", runtime.ChoiceSkip)
	submit(t, o, "v1", "ada@example.com")

	s := waitFor(t, o, "v1", domain.At(domain.StepConfirmation))
	assert.False(t, s.Frozen)
	require.Eventually(t, failed.Load, time.Second, 2*time.Millisecond)
}

func TestOrchestrator_FrozenSessionIsIsolated(t *testing.T) {
	var frozen atomic.Int32
	hooks := domain.LifecycleHooks{
		OnFreeze: func(context.Context, *domain.FreezeEvent) { frozen.Add(1) },
	}
	o := newTestOrchestrator(t, WithHooks(hooks))
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := o.Open(ctx, id)
		require.NoError(t, err)
	}

	a, err := o.actor("a", false)
	require.NoError(t, err)
	o.deliver(a, domain.ExternalResult(domain.AdapterCharge, nil))

	require.Eventually(t, func() bool { return frozen.Load() == 1 }, time.Second, time.Millisecond)
	s, err := o.Snapshot("a")
	require.NoError(t, err)
	assert.True(t, s.Frozen)

	r, err := o.ChoiceMade(ctx, "a", runtime.RoleFounder)
	require.NoError(t, err)
	assert.True(t, r.Rejected)
	assert.Equal(t, runtime.ReasonFrozen, r.Reason)

	choose(t, o, "b", runtime.RoleFounder)
	waitFor(t, o, "b", domain.At(domain.StepFounderGoal))

	// Reopening gives a clean generation.
	_, err = o.Open(ctx, "a")
	require.NoError(t, err)
	choose(t, o, "a", runtime.RoleFounder)
	waitFor(t, o, "a", domain.At(domain.StepFounderGoal))
}

func TestOrchestrator_StaleMessageChoiceRejected(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()
	_, err := o.Open(ctx, "v1")
	require.NoError(t, err)

	r, err := o.ChooseOption(ctx, "v1", 2, runtime.RoleFounder)
	require.NoError(t, err)
	require.False(t, r.Rejected)
	waitFor(t, o, "v1", domain.At(domain.StepFounderGoal))

	r, err = o.ChooseOption(ctx, "v1", 2, runtime.RoleInvestor)
	require.NoError(t, err)
	assert.True(t, r.Rejected)
	assert.Equal(t, runtime.ReasonStaleChoice, r.Reason)
}

func TestOrchestrator_SubscribeStreamsMessages(t *testing.T) {
	o := newTestOrchestrator(t)
	ch, cancel := o.Subscribe("v1")
	defer cancel()

	_, err := o.Open(context.Background(), "v1")
	require.NoError(t, err)

	for want := int64(1); want <= 2; want++ {
		select {
		case ev := <-ch:
			assert.Equal(t, "v1", ev.SessionID)
			assert.Equal(t, uint64(1), ev.Generation)
			assert.Equal(t, want, ev.Message.ID)
		case <-time.After(time.Second):
			t.Fatalf("message %d not published", want)
		}
	}
}

func TestOrchestrator_Errors(t *testing.T) {
	o := newTestOrchestrator(t, WithMaxInputSize(8))
	ctx := context.Background()

	_, err := o.ChoiceMade(ctx, "missing", runtime.RoleFounder)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = o.Open(ctx, "v1")
	require.NoError(t, err)
	_, err = o.TextSubmitted(ctx, "v1", "this is far too long")
	assert.ErrorIs(t, err, ErrInputTooLarge)

	require.NoError(t, o.Close())
	_, err = o.Open(ctx, "v2")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOrchestrator_TextDuringAnalysisIsReplayed(t *testing.T) {
	analyzer := &stubAnalyzer{label: "Fintech", release: make(chan struct{})}
	o := newTestOrchestrator(t, WithAnalyzer(analyzer))

	_, err := o.Open(context.Background(), "v1")
	require.NoError(t, err)
	choose(t, o, "v1", runtime.RoleFounder)
	choose(t, o, "v1", runtime.GoalFundraise)
	submit(t, o, "v1", "https://acme.ai")

	r, err := o.TextSubmitted(context.Background(), "v1", "10k MRR")
	require.NoError(t, err)
	assert.False(t, r.Rejected)
	assert.True(t, r.Queued)

	snap, err := o.Snapshot("v1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepExternalAnalysis, snap.Step.Kind)
	assert.NotContains(t, snap.Answers, string(domain.FieldTraction))

	close(analyzer.release)
	s := waitFor(t, o, "v1", domain.DetailCapture(domain.FieldStage))
	assert.Equal(t, "10k MRR", s.Answers[string(domain.FieldTraction)])
	assert.Equal(t, "Fintech", s.Answers[domain.AnswerIndustry])

	msgs, err := o.Timeline("v1")
	require.NoError(t, err)
	var user []string
	for _, m := range msgs {
		if m.Sender == domain.SenderUser {
			user = append(user, m.Body)
		}
	}
	assert.Equal(t, "10k MRR", user[len(user)-1])
}

func TestOrchestrator_DeferredQueueIsBounded(t *testing.T) {
	analyzer := &stubAnalyzer{label: "Fintech", release: make(chan struct{})}
	o := newTestOrchestrator(t, WithAnalyzer(analyzer), WithInboxSize(2))

	_, err := o.Open(context.Background(), "v1")
	require.NoError(t, err)
	choose(t, o, "v1", runtime.RoleFounder)
	choose(t, o, "v1", runtime.GoalFundraise)
	submit(t, o, "v1", "https://acme.ai")

	for i := 0; i < 2; i++ {
		r, err := o.TextSubmitted(context.Background(), "v1", "more")
		require.NoError(t, err)
		assert.True(t, r.Queued)
	}
	r, err := o.TextSubmitted(context.Background(), "v1", "too much")
	require.NoError(t, err)
	assert.True(t, r.Rejected)
	assert.Equal(t, ReasonQueueFull, r.Reason)
	close(analyzer.release)
}

func TestOrchestrator_OpenSkipsQueuedEvents(t *testing.T) {
	const delay = 200 * time.Millisecond
	o := newTestOrchestrator(t, WithComposeDelay(delay, delay))

	_, err := o.Open(context.Background(), "v1")
	require.NoError(t, err)

	receipts := make(chan Receipt, 3)
	for i := 0; i < 3; i++ {
		go func() {
			r, err := o.ChoiceMade(context.Background(), "v1", runtime.RoleFounder)
			assert.NoError(t, err)
			receipts <- r
		}()
	}
	a, err := o.actor("v1", false)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(a.inbox) == 3 }, time.Second, time.Millisecond)

	started := time.Now()
	gen, err := o.Open(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), gen)
	assert.Less(t, time.Since(started), delay, "queued events run no composing pauses")

	for i := 0; i < 3; i++ {
		r := <-receipts
		assert.True(t, r.Rejected)
		assert.Equal(t, ReasonSuperseded, r.Reason)
	}

	s := waitFor(t, o, "v1", domain.At(domain.StepWelcome))
	assert.Equal(t, uint64(2), s.Generation)
	assert.Empty(t, s.Answers)
}
