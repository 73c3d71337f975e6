package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/openstars/pkg/domain"
)

// handleChoice applies an option selection to the awaiting message.
func (e *Engine) handleChoice(current *domain.Session, ev domain.Event) (Result, error) {
	if current.AwaitingMessageID == 0 {
		return reject(current, ReasonNoPendingChoice), nil
	}
	if ev.MessageID != 0 && ev.MessageID != current.AwaitingMessageID {
		return reject(current, ReasonStaleChoice), nil
	}
	choice, ok := current.Option(ev.ChoiceID)
	if !ok {
		return reject(current, ReasonUnknownChoice), nil
	}

	t := e.begin(current, ev)
	t.consume()
	t.echo(choice.Label)

	switch current.Step.Kind {
	case domain.StepWelcome:
		t.set(domain.AnswerRole, choice.ID)
		t.enter(domain.At(domain.StepRoleSelect))
		kind, prompt, options := menuFor(choice.ID)
		t.enter(domain.At(kind))
		t.say(prompt, options, nil)

	case domain.StepFounderGoal, domain.StepInvestorFocus, domain.StepOtherIntake:
		t.set(domain.AnswerGoal, choice.ID)
		plan := planFor(t.next.Answers[domain.AnswerRole])
		e.capture(t, plan.fields[0])

	case domain.StepUpsellOffer:
		if choice.ID == ChoicePay {
			e.checkout(t)
		} else {
			e.askEmail(t)
		}

	default:
		return Result{}, violation(current, ev, nil)
	}
	return t.result()
}

// handleText records a free-text answer.
func (e *Engine) handleText(current *domain.Session, ev domain.Event) (Result, error) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return reject(current, ReasonEmptyText), nil
	}

	switch current.Step.Kind {
	case domain.StepDetailCapture:
		t := e.begin(current, ev)
		field := current.Step.Field
		t.echo(text)
		t.set(string(field), text)

		plan := planFor(current.Answers[domain.AnswerRole])
		switch next := plan.after(field); {
		case field == plan.analyze:
			t.enter(domain.At(domain.StepExternalAnalysis))
			t.say(fill(copyAnalyzing, vars(t.next)), nil, nil)
			t.invoke(domain.AdapterAnalyze, map[string]any{"url": text}, "")
		case next != "":
			e.capture(t, next)
		default:
			e.present(t)
		}
		return t.result()

	case domain.StepEmailCapture:
		t := e.begin(current, ev)
		t.echo(text)
		t.set(string(domain.FieldEmail), text)
		e.confirm(t)
		return t.result()
	}
	return reject(current, ReasonNotAcceptingText), nil
}

// handleExternal routes an adapter outcome to the step waiting for it.
func (e *Engine) handleExternal(current *domain.Session, ev domain.Event) (Result, error) {
	if ev.Token != "" && ev.Token != current.PendingToken {
		return reject(current, ReasonStaleToken), nil
	}

	t := e.begin(current, ev)
	switch {
	case current.Step.Kind == domain.StepExternalAnalysis && ev.Tag == domain.AdapterAnalyze:
		t.settle()
		label := e.fallbackIndustry
		if s, ok := ev.Payload.(string); ok && ev.Kind == domain.EventExternalResult && strings.TrimSpace(s) != "" {
			label = strings.TrimSpace(s)
		}
		t.set(domain.AnswerIndustry, label)

		plan := planFor(current.Answers[domain.AnswerRole])
		if next := plan.after(plan.analyze); next != "" {
			e.capture(t, next)
		} else {
			e.present(t)
		}

	case current.Step.Kind == domain.StepPaymentAwaiting && ev.Tag == domain.AdapterCharge:
		t.settle()
		if approved, reason := chargeOutcome(ev); approved {
			e.unlock(t)
		} else {
			e.decline(t, reason)
		}

	default:
		return Result{}, violation(current, ev, nil)
	}
	return t.result()
}

// handleContinue reveals the prompt that follows a results message.
func (e *Engine) handleContinue(current *domain.Session, ev domain.Event) (Result, error) {
	if ev.Token != "" && ev.Token != current.PendingToken {
		return reject(current, ReasonStaleToken), nil
	}

	t := e.begin(current, ev)
	switch current.Step.Kind {
	case domain.StepResultsPresented:
		t.settle()
		e.offer(t)
	case domain.StepBonusResults, domain.StepFallbackResults:
		t.settle()
		e.askEmail(t)
	default:
		return Result{}, violation(current, ev, nil)
	}
	return t.result()
}

func (e *Engine) capture(t *tx, field domain.Field) {
	t.enter(domain.DetailCapture(field))
	t.say(fill(promptFor(field, t.next.Answers[domain.AnswerRole]), vars(t.next)), nil, nil)
}

func (e *Engine) pool(s *domain.Session) domain.ProfileKind {
	return poolFor(s.Answers[domain.AnswerRole], s.Answers[domain.AnswerGoal])
}

func (e *Engine) present(t *tx) {
	t.enter(domain.At(domain.StepResultsPresented))

	kind := e.pool(t.next)
	picks := Sample(e.random, e.catalog.Pool(kind), e.sampleSize)
	t.next.Shown = picks

	data := vars(t.next)
	data["count"] = strconv.Itoa(len(picks))
	data["pool"] = poolNames[kind]
	t.say(fill(copyResults, data), nil, picks)
	t.after()
}

func (e *Engine) offer(t *tx) {
	t.enter(domain.At(domain.StepUpsellOffer))

	data := vars(t.next)
	data["count"] = strconv.Itoa(e.sampleSize)
	data["price"] = formatPrice(e.priceCents, e.currency)
	options := []domain.Choice{
		{ID: ChoicePay, Label: fill(copyPayLabel, data)},
		{ID: ChoiceSkip, Label: copySkipLabel},
	}
	t.say(fill(copyUpsell, data), options, nil)
}

func (e *Engine) checkout(t *tx) {
	t.enter(domain.At(domain.StepPaymentInitiated))
	t.say(copyCheckout, nil, nil)
	t.enter(domain.At(domain.StepPaymentAwaiting))

	t.invoke(domain.AdapterCharge, map[string]any{
		"offer":        OfferPremiumIntros,
		"amount_cents": e.priceCents,
		"currency":     e.currency,
	}, chargeKey(t.next))
}

// chargeKey identifies the premium charge of one opened conversation.
func chargeKey(s *domain.Session) string {
	if s.Nonce == "" {
		return fmt.Sprintf("%s:%d:%s", s.ID, s.Generation, OfferPremiumIntros)
	}
	return fmt.Sprintf("%s:%d:%s:%s", s.ID, s.Generation, s.Nonce, OfferPremiumIntros)
}

func (e *Engine) unlock(t *tx) {
	t.next.PremiumUnlocked = true
	t.enter(domain.At(domain.StepPaymentUnlocked))
	t.say(copyUnlocked, nil, nil)

	t.enter(domain.At(domain.StepBonusResults))
	kind := e.pool(t.next)
	bonus := Sample(e.random, without(e.catalog.Pool(kind), t.next.Shown), e.sampleSize)
	if len(bonus) == 0 {
		t.say(copyBonusExhausted, nil, nil)
	} else {
		data := vars(t.next)
		data["count"] = strconv.Itoa(len(bonus))
		data["pool"] = poolNames[kind]
		t.say(fill(copyBonus, data), nil, bonus)
	}
	t.after()
}

func (e *Engine) decline(t *tx, reason string) {
	t.enter(domain.At(domain.StepPaymentFailed))
	data := vars(t.next)
	if reason != "" {
		data["reason"] = reason
	}
	t.say(fill(copyPaymentFailed, data), nil, nil)

	t.enter(domain.At(domain.StepFallbackResults))
	t.say(copyFallback, nil, t.next.Shown)
	t.after()
}

func (e *Engine) askEmail(t *tx) {
	t.enter(domain.At(domain.StepEmailCapture))
	t.say(copyEmailPrompt, nil, nil)
}

func (e *Engine) confirm(t *tx) {
	t.enter(domain.At(domain.StepConfirmation))
	t.say(copySubmitting, nil, nil)
	t.say(copyConfirmation, nil, nil)

	answers := make(map[string]string, len(t.next.Answers))
	for k, v := range t.next.Answers {
		answers[k] = v
	}
	t.effects = append(t.effects, domain.Notify(domain.LeadRecord{
		SessionID:       t.next.ID,
		Generation:      t.next.Generation,
		Role:            t.next.Answers[domain.AnswerRole],
		Goal:            t.next.Answers[domain.AnswerGoal],
		Answers:         answers,
		PremiumUnlocked: t.next.PremiumUnlocked,
		Matches:         profileIDs(t.next.Shown),
	}))
}

// chargeOutcome interprets a charge event. Anything but an explicit approval declines.
func chargeOutcome(ev domain.Event) (bool, string) {
	if ev.Kind == domain.EventExternalFailure {
		return false, ev.Reason
	}
	switch p := ev.Payload.(type) {
	case domain.ChargeOutcome:
		return p.Approved, p.Reason
	case *domain.ChargeOutcome:
		if p != nil {
			return p.Approved, p.Reason
		}
	case bool:
		return p, ""
	case string:
		return strings.EqualFold(p, "approved"), p
	}
	return false, "unrecognized provider response"
}
