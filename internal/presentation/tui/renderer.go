package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/openstars/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// When no terminal renderer can be built the markdown is returned as is.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// MessageMarkdown formats a timeline message. Options are numbered so the
// chat can accept either the number or the option id.
func MessageMarkdown(m domain.Message) string {
	var sb strings.Builder
	if m.FromBot() {
		sb.WriteString("**⭐ Star:** ")
	} else {
		sb.WriteString("**You:** ")
	}
	sb.WriteString(m.Body)
	sb.WriteString("\n")

	if len(m.Results) > 0 {
		sb.WriteString("\n")
		for _, p := range m.Results {
			fmt.Fprintf(&sb, "- **%s**: %s", p.Name, p.Headline)
			if len(p.Tags) > 0 {
				fmt.Fprintf(&sb, " _(%s)_", strings.Join(p.Tags, ", "))
			}
			sb.WriteString("\n")
		}
	}

	if len(m.Options) > 0 {
		sb.WriteString("\n")
		for i, o := range m.Options {
			fmt.Fprintf(&sb, "%d. %s `%s`\n", i+1, o.Label, o.ID)
		}
	}
	return sb.String()
}
