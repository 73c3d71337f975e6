package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/openstars/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep(t *testing.T) {
	assert.Equal(t, "welcome", domain.At(domain.StepWelcome).String())
	assert.Equal(t, "detail_capture(email)", domain.DetailCapture(domain.FieldEmail).String())

	assert.True(t, domain.At(domain.StepConfirmation).Terminal())
	assert.False(t, domain.At(domain.StepEmailCapture).Terminal())

	assert.True(t, domain.At(domain.StepUpsellOffer).Valid())
	assert.True(t, domain.DetailCapture(domain.FieldName).Valid())
	assert.False(t, domain.At(domain.StepDetailCapture).Valid(), "capture needs a field")
	assert.False(t, domain.Step{Kind: domain.StepWelcome, Field: domain.FieldName}.Valid())
	assert.False(t, domain.At("limbo").Valid())
}

func TestSession_CloneIsIndependent(t *testing.T) {
	s := domain.NewSession("s1", 3)
	s.Answers[domain.AnswerRole] = "founder"
	s.AwaitingOptions = []domain.Choice{{ID: "pay", Label: "Pay"}}
	s.Shown = []domain.Profile{{ID: "i1", Tags: []string{"ai"}}}

	c := s.Clone()
	c.Answers[domain.AnswerRole] = "investor"
	c.AwaitingOptions[0].ID = "skip"
	c.Shown[0].Tags[0] = "fintech"
	c.History = append(c.History, domain.At(domain.StepRoleSelect))

	assert.Equal(t, "founder", s.Answers[domain.AnswerRole])
	assert.Equal(t, "pay", s.AwaitingOptions[0].ID)
	assert.Equal(t, "ai", s.Shown[0].Tags[0])
	assert.Len(t, s.History, 1)

	var nilSession *domain.Session
	assert.Nil(t, nilSession.Clone())
}

func TestSession_OptionAndAwaiting(t *testing.T) {
	s := domain.NewSession("s1", 1)
	s.AwaitingMessageID = 2
	s.AwaitingOptions = []domain.Choice{{ID: "founder", Label: "🚀 I'm a Founder"}}

	c, ok := s.Option("founder")
	require.True(t, ok)
	assert.Equal(t, "🚀 I'm a Founder", c.Label)
	_, ok = s.Option("pirate")
	assert.False(t, ok)

	assert.True(t, s.Awaiting(2))
	assert.False(t, s.Awaiting(1))
	assert.False(t, domain.NewSession("s2", 1).Awaiting(0))

	v, ok := s.Answer(domain.AnswerRole)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestTransitionError(t *testing.T) {
	err := &domain.TransitionError{Step: domain.At(domain.StepUpsellOffer), Event: domain.EventExternalResult, Tag: domain.AdapterAnalyze}
	assert.True(t, errors.Is(err, domain.ErrNoTransition))
	assert.Equal(t, "step upsell_offer: external_result(analyze): no transition for event", err.Error())

	wrapped := &domain.TransitionError{Step: domain.At(domain.StepWelcome), Event: domain.EventContinue, Cause: domain.ErrInvalidStep}
	assert.True(t, errors.Is(wrapped, domain.ErrInvalidStep))
	assert.False(t, errors.Is(wrapped, domain.ErrNoTransition))
}

func TestEvent(t *testing.T) {
	ev := domain.ExternalResult(domain.AdapterCharge, "ok").Stamped(4, "tok")
	assert.Equal(t, uint64(4), ev.Generation)
	assert.Equal(t, "tok", ev.Token)
	assert.False(t, ev.FromUser())

	assert.True(t, domain.ChoiceOn(7, "pay").FromUser())
	assert.True(t, domain.TextSubmitted("hi").FromUser())
	assert.False(t, domain.Continue().FromUser())
}

func TestMessage_Clone(t *testing.T) {
	m := domain.Message{
		ID:      1,
		Sender:  domain.SenderBot,
		Options: []domain.Choice{{ID: "a"}},
		Results: []domain.Profile{{ID: "p", Tags: []string{"x"}}},
	}
	c := m.Clone()
	c.Options[0].ID = "b"
	c.Results[0].Tags[0] = "y"

	assert.Equal(t, "a", m.Options[0].ID)
	assert.Equal(t, "x", m.Results[0].Tags[0])
	assert.True(t, m.FromBot())
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	first := domain.LifecycleHooks{
		OnFreeze: func(context.Context, *domain.FreezeEvent) { calls = append(calls, "first") },
	}
	second := domain.LifecycleHooks{
		OnFreeze:  func(context.Context, *domain.FreezeEvent) { calls = append(calls, "second") },
		OnCompose: func(context.Context, *domain.ComposeEvent) { calls = append(calls, "compose") },
	}

	merged := first.Merge(second)
	merged.OnFreeze(context.Background(), &domain.FreezeEvent{})
	merged.OnCompose(context.Background(), &domain.ComposeEvent{})
	assert.Nil(t, merged.OnTransition)
	assert.Equal(t, []string{"first", "second", "compose"}, calls)
}
