package domain

import "fmt"

// StepKind identifies a vertex of the dialogue graph.
type StepKind string

const (
	StepWelcome          StepKind = "welcome"
	StepRoleSelect       StepKind = "role_select"
	StepFounderGoal      StepKind = "founder_goal"
	StepInvestorFocus    StepKind = "investor_focus"
	StepOtherIntake      StepKind = "other_intake"
	StepDetailCapture    StepKind = "detail_capture"
	StepExternalAnalysis StepKind = "external_analysis"
	StepResultsPresented StepKind = "results_presented"
	StepUpsellOffer      StepKind = "upsell_offer"
	StepPaymentInitiated StepKind = "payment_initiated"
	StepPaymentAwaiting  StepKind = "payment_awaiting_provider"
	StepPaymentUnlocked  StepKind = "payment_unlocked"
	StepBonusResults     StepKind = "bonus_results_presented"
	StepPaymentFailed    StepKind = "payment_failed"
	StepFallbackResults  StepKind = "fallback_results_presented"
	StepEmailCapture     StepKind = "email_capture"
	StepConfirmation     StepKind = "confirmation"
)

// StepKinds lists every vertex in graph order.
var StepKinds = []StepKind{
	StepWelcome,
	StepRoleSelect,
	StepFounderGoal,
	StepInvestorFocus,
	StepOtherIntake,
	StepDetailCapture,
	StepExternalAnalysis,
	StepResultsPresented,
	StepUpsellOffer,
	StepPaymentInitiated,
	StepPaymentAwaiting,
	StepPaymentUnlocked,
	StepBonusResults,
	StepPaymentFailed,
	StepFallbackResults,
	StepEmailCapture,
	StepConfirmation,
}

// Field names the free-text answer a DetailCapture step collects.
type Field string

const (
	FieldWebsite   Field = "website"
	FieldLinkedIn  Field = "linkedin"
	FieldTraction  Field = "traction"
	FieldStage     Field = "stage"
	FieldCheckSize Field = "check_size"
	FieldPitch     Field = "pitch"
	FieldName      Field = "name"
	FieldPhone     Field = "phone"
	FieldEmail     Field = "email"
)

// Step is the current position of a session in the graph.
// Field is only set for StepDetailCapture.
type Step struct {
	Kind  StepKind `json:"kind"`
	Field Field    `json:"field,omitempty"`
}

// At returns the unparameterized step of the given kind.
func At(kind StepKind) Step {
	return Step{Kind: kind}
}

// DetailCapture returns the capture step for a field.
func DetailCapture(field Field) Step {
	return Step{Kind: StepDetailCapture, Field: field}
}

func (s Step) String() string {
	if s.Field != "" {
		return fmt.Sprintf("%s(%s)", s.Kind, s.Field)
	}
	return string(s.Kind)
}

// Terminal reports whether the step is a sink.
func (s Step) Terminal() bool {
	return s.Kind == StepConfirmation
}

// Valid reports whether the step names a known vertex.
func (s Step) Valid() bool {
	known := false
	for _, k := range StepKinds {
		if k == s.Kind {
			known = true
			break
		}
	}
	if !known {
		return false
	}
	if s.Kind == StepDetailCapture {
		return s.Field != ""
	}
	return s.Field == ""
}

// Edge is a permitted hop between two vertices.
type Edge struct {
	From  StepKind `json:"from"`
	To    StepKind `json:"to"`
	Label string   `json:"label,omitempty"`
}
