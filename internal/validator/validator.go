// Package validator checks the structural soundness of the dialogue graph.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/openstars/pkg/domain"
)

// ValidateGraph checks that every step is reachable from start, that goal is
// reachable from every step and that goal is a sink. Edges naming unknown
// steps are reported too.
func ValidateGraph(edges []domain.Edge, start, goal domain.StepKind) error {
	forward := make(map[domain.StepKind][]domain.StepKind)
	backward := make(map[domain.StepKind][]domain.StepKind)

	var problems []string
	for _, e := range edges {
		for _, k := range []domain.StepKind{e.From, e.To} {
			if !slices.Contains(domain.StepKinds, k) {
				problems = append(problems, fmt.Sprintf("Unknown step '%s' in edge %s -> %s", k, e.From, e.To))
			}
		}
		forward[e.From] = append(forward[e.From], e.To)
		backward[e.To] = append(backward[e.To], e.From)
	}

	reachable := crawl(forward, start)
	live := crawl(backward, goal)

	for _, k := range domain.StepKinds {
		if !reachable[k] {
			problems = append(problems, fmt.Sprintf("Unreachable step: '%s'", k))
		}
		if !live[k] {
			problems = append(problems, fmt.Sprintf("Dead end: '%s' never reaches '%s'", k, goal))
		}
	}
	if len(forward[goal]) > 0 {
		problems = append(problems, fmt.Sprintf("Goal '%s' has outgoing edges", goal))
	}

	if len(problems) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
	}
	return nil
}

// crawl returns every step reachable from origin along adj.
func crawl(adj map[domain.StepKind][]domain.StepKind, origin domain.StepKind) map[domain.StepKind]bool {
	visited := map[domain.StepKind]bool{origin: true}
	queue := []domain.StepKind{origin}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adj[current] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}
