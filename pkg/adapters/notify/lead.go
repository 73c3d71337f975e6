package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/openstars/pkg/domain"
)

// EmailConfig holds sender and recipient addresses for email notifiers.
type EmailConfig struct {
	FromEmail string
	FromName  string
	To        string
}

func (c EmailConfig) withDefaults() EmailConfig {
	if c.FromName == "" {
		c.FromName = "OpenStars"
	}
	return c
}

// Subject returns the email subject for a lead.
func Subject(rec domain.LeadRecord) string {
	name := rec.Answers[string(domain.FieldName)]
	if name == "" {
		name = rec.SessionID
	}
	return fmt.Sprintf("New %s lead: %s", rec.Role, name)
}

// Body renders a plain-text summary of a lead.
func Body(rec domain.LeadRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s (generation %d)\n", rec.SessionID, rec.Generation)
	fmt.Fprintf(&b, "Role: %s\nGoal: %s\n", rec.Role, rec.Goal)
	fmt.Fprintf(&b, "Premium: %t\n", rec.PremiumUnlocked)
	if !rec.SubmittedAt.IsZero() {
		fmt.Fprintf(&b, "Submitted: %s\n", rec.SubmittedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}

	keys := make([]string, 0, len(rec.Answers))
	for k := range rec.Answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("\nAnswers:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, rec.Answers[k])
	}
	if len(rec.Matches) > 0 {
		fmt.Fprintf(&b, "\nMatches shown: %s\n", strings.Join(rec.Matches, ", "))
	}
	return b.String()
}
