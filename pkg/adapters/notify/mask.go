package notify

import (
	"context"
	"fmt"
	"maps"
	"regexp"

	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/ports"
)

// Masked is the value that replaces a masked answer.
const Masked = "***"

// Masking hides answers whose keys match any pattern before handing the
// record to the next notifier.
type Masking struct {
	next     ports.Notifier
	patterns []*regexp.Regexp
}

// NewMasking wraps next so that answers matching patterns never reach it.
func NewMasking(next ports.Notifier, patterns []string) (*Masking, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("mask pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return &Masking{next: next, patterns: compiled}, nil
}

// Notify implements ports.Notifier. The caller's record is left untouched.
func (m *Masking) Notify(ctx context.Context, rec domain.LeadRecord) error {
	masked := rec
	masked.Answers = maps.Clone(rec.Answers)
	for k := range masked.Answers {
		for _, p := range m.patterns {
			if p.MatchString(k) {
				masked.Answers[k] = Masked
				break
			}
		}
	}
	return m.next.Notify(ctx, masked)
}
