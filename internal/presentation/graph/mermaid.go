package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/openstars/pkg/domain"
)

// Overlay marks the path a session took through the graph.
type Overlay struct {
	Visited []domain.StepKind
	Current domain.StepKind
}

// OverlayFor builds the overlay of a session snapshot.
func OverlayFor(s *domain.Session) *Overlay {
	if s == nil {
		return nil
	}
	o := &Overlay{Current: s.Step.Kind}
	for _, step := range s.History {
		o.Visited = append(o.Visited, step.Kind)
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart from the dialogue edges.
// It applies semantic styling:
// - Welcome: ((Circle))
// - Confirmation: (((Double circle)))
// - Adapter waits: [[Subroutine]]
// - Free-text input: [/Parallelogram/]
// - Default: [Rectangle]
func GenerateMermaid(edges []domain.Edge, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	seen := make(map[domain.StepKind]bool)
	declare := func(kind domain.StepKind) {
		if seen[kind] {
			return
		}
		seen[kind] = true
		opener, closer := shape(kind)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", mermaidID(kind), opener, kind, closer)
	}

	for _, e := range edges {
		declare(e.From)
		declare(e.To)

		arrow := "-->"
		if e.Label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(e.Label, "\"", "'"))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", mermaidID(e.From), arrow, mermaidID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		styled := make(map[domain.StepKind]bool)
		for _, kind := range overlay.Visited {
			if styled[kind] || !seen[kind] || kind == overlay.Current {
				continue
			}
			styled[kind] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", mermaidID(kind))
		}
		if overlay.Current != "" && seen[overlay.Current] {
			fmt.Fprintf(&sb, "    class %s current;\n", mermaidID(overlay.Current))
		}
	}

	return sb.String()
}

func shape(kind domain.StepKind) (string, string) {
	switch kind {
	case domain.StepWelcome:
		return "((", "))"
	case domain.StepConfirmation:
		return "(((", ")))"
	case domain.StepExternalAnalysis, domain.StepPaymentAwaiting:
		return "[[", "]]"
	case domain.StepDetailCapture, domain.StepEmailCapture:
		return "[/", "/]"
	}
	return "[", "]"
}

func mermaidID(kind domain.StepKind) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_").Replace(string(kind))
}
