package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/openstars/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestMessageMarkdown(t *testing.T) {
	md := MessageMarkdown(domain.Message{
		ID:     4,
		Sender: domain.SenderBot,
		Body:   "Here are your matches",
		Results: []domain.Profile{
			{Name: "Ada Ventures", Headline: "Seed fund", Tags: []string{"fintech", "seed"}},
		},
		Options: []domain.Choice{
			{ID: "pay", Label: "Unlock"},
			{ID: "skip", Label: "Skip"},
		},
	})

	assert.Contains(t, md, "**⭐ Star:** Here are your matches")
	assert.Contains(t, md, "- **Ada Ventures**: Seed fund _(fintech, seed)_")
	assert.Contains(t, md, "1. Unlock `pay`")
	assert.Contains(t, md, "2. Skip `skip`")
}

func TestMessageMarkdown_User(t *testing.T) {
	md := MessageMarkdown(domain.Message{ID: 5, Sender: domain.SenderUser, Body: "acme.io"})
	assert.Equal(t, "**You:** acme.io\n", md)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_|")
}

func TestNewRenderer(t *testing.T) {
	out, err := NewRenderer()("**bold**")
	assert.NoError(t, err)
	assert.Contains(t, out, "bold")
}
