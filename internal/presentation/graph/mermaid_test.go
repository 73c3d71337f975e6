package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/openstars/internal/presentation/graph"
	"github.com/aretw0/openstars/internal/runtime"
	"github.com/aretw0/openstars/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid_Shapes(t *testing.T) {
	out := graph.GenerateMermaid(runtime.NewEngine().Graph(), nil)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	for _, want := range []string{
		`welcome(("welcome"))`,
		`confirmation((("confirmation")))`,
		`external_analysis[["external_analysis"]]`,
		`detail_capture[/"detail_capture"/]`,
		`upsell_offer["upsell_offer"]`,
		`upsell_offer -- "pay" --> payment_initiated`,
		`payment_initiated --> payment_awaiting_provider`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")

	// Each vertex is declared once.
	assert.Equal(t, 1, strings.Count(out, `detail_capture[/"detail_capture"/]`))
}

func TestGenerateMermaid_EscapesLabels(t *testing.T) {
	out := graph.GenerateMermaid([]domain.Edge{
		{From: domain.StepWelcome, To: domain.StepRoleSelect, Label: `say "hi"`},
	}, nil)
	assert.Contains(t, out, `welcome -- "say 'hi'" --> role_select`)
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	s := domain.NewSession("s1", 1)
	s.History = append(s.History, domain.At(domain.StepRoleSelect), domain.At(domain.StepFounderGoal))
	s.Step = domain.At(domain.StepFounderGoal)

	out := graph.GenerateMermaid(runtime.NewEngine().Graph(), graph.OverlayFor(s))

	assert.Contains(t, out, "class welcome visited;")
	assert.Contains(t, out, "class role_select visited;")
	assert.Contains(t, out, "class founder_goal current;")
	assert.NotContains(t, out, "class founder_goal visited;")
	assert.Equal(t, 1, strings.Count(out, "class welcome visited;"))
}

func TestOverlayFor_Nil(t *testing.T) {
	assert.Nil(t, graph.OverlayFor(nil))
}
