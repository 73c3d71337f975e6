package runtime

import "github.com/aretw0/openstars/pkg/domain"

// Role choices.
const (
	RoleFounder    = "founder"
	RoleInvestor   = "investor"
	RoleResearcher = "researcher"
	RoleTalent     = "talent"
	RoleOther      = "other"
)

// Goal choices, one menu per role branch.
const (
	GoalFundraise = "fundraise"
	GoalCofounder = "cofounder"
	GoalHire      = "hire"

	FocusDealFlow   = "deal-flow"
	FocusAIStartups = "ai-startups"
	FocusCoinvest   = "coinvest"

	IntentNetwork       = "network"
	IntentExplore       = "explore"
	IntentOpportunities = "opportunities"
)

// Upsell choices.
const (
	ChoicePay  = "pay"
	ChoiceSkip = "skip"
)

var roleOptions = []domain.Choice{
	{ID: RoleFounder, Label: "🚀 I'm a Founder"},
	{ID: RoleInvestor, Label: "💼 I'm an Investor"},
	{ID: RoleResearcher, Label: "🔬 AI Researcher/Engineer"},
	{ID: RoleTalent, Label: "⭐ Looking for opportunities"},
	{ID: RoleOther, Label: "✨ Other"},
}

var founderGoals = []domain.Choice{
	{ID: GoalFundraise, Label: "💰 Investors/VCs"},
	{ID: GoalCofounder, Label: "🤝 Co-founder"},
	{ID: GoalHire, Label: "👥 Build team"},
}

var investorFocus = []domain.Choice{
	{ID: FocusDealFlow, Label: "📊 Deal flow"},
	{ID: FocusAIStartups, Label: "🤖 AI startups"},
	{ID: FocusCoinvest, Label: "💎 Co-invest"},
}

var otherIntents = []domain.Choice{
	{ID: IntentNetwork, Label: "🌐 Network"},
	{ID: IntentExplore, Label: "🔍 Explore"},
	{ID: IntentOpportunities, Label: "⭐ Opportunities"},
}

// edges lists every hop the engine may take.
var edges = []domain.Edge{
	{From: domain.StepWelcome, To: domain.StepRoleSelect, Label: "role chosen"},
	{From: domain.StepRoleSelect, To: domain.StepFounderGoal, Label: "founder"},
	{From: domain.StepRoleSelect, To: domain.StepInvestorFocus, Label: "investor"},
	{From: domain.StepRoleSelect, To: domain.StepOtherIntake, Label: "other roles"},
	{From: domain.StepFounderGoal, To: domain.StepDetailCapture, Label: "goal chosen"},
	{From: domain.StepInvestorFocus, To: domain.StepDetailCapture, Label: "focus chosen"},
	{From: domain.StepOtherIntake, To: domain.StepDetailCapture, Label: "intent chosen"},
	{From: domain.StepDetailCapture, To: domain.StepDetailCapture, Label: "next field"},
	{From: domain.StepDetailCapture, To: domain.StepExternalAnalysis, Label: "url captured"},
	{From: domain.StepDetailCapture, To: domain.StepResultsPresented, Label: "last field"},
	{From: domain.StepExternalAnalysis, To: domain.StepDetailCapture, Label: "industry known"},
	{From: domain.StepExternalAnalysis, To: domain.StepResultsPresented, Label: "industry known"},
	{From: domain.StepResultsPresented, To: domain.StepUpsellOffer, Label: "continue"},
	{From: domain.StepUpsellOffer, To: domain.StepPaymentInitiated, Label: "pay"},
	{From: domain.StepUpsellOffer, To: domain.StepEmailCapture, Label: "skip"},
	{From: domain.StepPaymentInitiated, To: domain.StepPaymentAwaiting},
	{From: domain.StepPaymentAwaiting, To: domain.StepPaymentUnlocked, Label: "approved"},
	{From: domain.StepPaymentAwaiting, To: domain.StepPaymentFailed, Label: "declined"},
	{From: domain.StepPaymentUnlocked, To: domain.StepBonusResults},
	{From: domain.StepPaymentFailed, To: domain.StepFallbackResults},
	{From: domain.StepBonusResults, To: domain.StepEmailCapture, Label: "continue"},
	{From: domain.StepFallbackResults, To: domain.StepEmailCapture, Label: "continue"},
	{From: domain.StepEmailCapture, To: domain.StepConfirmation, Label: "email"},
}

func allowed(from, to domain.StepKind) bool {
	for _, e := range edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// capturePlan is the ordered list of free-text fields a branch collects.
// The answer to analyze is sent to the analysis adapter before the next prompt.
type capturePlan struct {
	fields  []domain.Field
	analyze domain.Field
}

func planFor(role string) capturePlan {
	switch role {
	case RoleFounder:
		return capturePlan{
			fields:  []domain.Field{domain.FieldWebsite, domain.FieldTraction, domain.FieldStage, domain.FieldName, domain.FieldPhone},
			analyze: domain.FieldWebsite,
		}
	case RoleInvestor:
		return capturePlan{
			fields:  []domain.Field{domain.FieldWebsite, domain.FieldCheckSize, domain.FieldName, domain.FieldPhone},
			analyze: domain.FieldWebsite,
		}
	default:
		return capturePlan{
			fields:  []domain.Field{domain.FieldLinkedIn, domain.FieldPitch, domain.FieldName, domain.FieldPhone},
			analyze: domain.FieldLinkedIn,
		}
	}
}

// after returns the field following f, or "" when f is the last one.
func (p capturePlan) after(f domain.Field) domain.Field {
	for i, field := range p.fields {
		if field == f && i+1 < len(p.fields) {
			return p.fields[i+1]
		}
	}
	return ""
}

// poolFor selects the candidate pool from the visitor's role and goal.
func poolFor(role, goal string) domain.ProfileKind {
	switch role {
	case RoleFounder:
		if goal == GoalFundraise {
			return domain.ProfileInvestor
		}
		return domain.ProfileTalent
	case RoleInvestor:
		return domain.ProfileStartup
	default:
		if goal == IntentNetwork {
			return domain.ProfileTalent
		}
		return domain.ProfileStartup
	}
}

func menuFor(role string) (domain.StepKind, string, []domain.Choice) {
	switch role {
	case RoleFounder:
		return domain.StepFounderGoal, copyFounderGoal, founderGoals
	case RoleInvestor:
		return domain.StepInvestorFocus, copyInvestorFocus, investorFocus
	default:
		return domain.StepOtherIntake, copyOtherIntake, otherIntents
	}
}
