package analysis

import (
	"context"
	"net/url"
	"strings"
	"unicode"
)

// Rule maps URL keywords to an industry label.
type Rule struct {
	Industry string
	Keywords []string
}

// DefaultRules covers the industries used by the built-in catalog.
func DefaultRules() []Rule {
	return []Rule{
		{Industry: "GenAI Infrastructure", Keywords: []string{"ai", "ml", "gpt", "llm", "neural", "model", "agent", "inference"}},
		{Industry: "Fintech", Keywords: []string{"pay", "bank", "fin", "credit", "ledger", "invest", "wallet", "money"}},
		{Industry: "BioTech", Keywords: []string{"bio", "health", "med", "gene", "clinic", "pharma", "care"}},
		{Industry: "Logistics", Keywords: []string{"ship", "freight", "fleet", "logistic", "cargo", "route", "delivery"}},
		{Industry: "Security", Keywords: []string{"sec", "secure", "guard", "shield", "vault", "auth", "cyber"}},
		{Industry: "Developer Tools", Keywords: []string{"dev", "code", "git", "api", "stack", "deploy", "cloud"}},
		{Industry: "Climate", Keywords: []string{"climate", "solar", "carbon", "energy", "green", "grid"}},
	}
}

// KeywordAnalyzer classifies URLs offline by matching host and path tokens.
// Short keywords must match a whole token; longer ones may appear inside one.
// The first matching rule wins; no match yields an empty label.
type KeywordAnalyzer struct {
	rules []Rule
}

// NewKeywordAnalyzer creates an analyzer. Without rules it uses DefaultRules.
func NewKeywordAnalyzer(rules ...Rule) *KeywordAnalyzer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &KeywordAnalyzer{rules: rules}
}

// Analyze implements ports.Analyzer. It never fails.
func (k *KeywordAnalyzer) Analyze(ctx context.Context, raw string) (string, error) {
	tokens := tokenize(raw)
	for _, rule := range k.rules {
		for _, kw := range rule.Keywords {
			if matches(tokens, kw) {
				return rule.Industry, nil
			}
		}
	}
	return "", nil
}

func matches(tokens []string, kw string) bool {
	for _, tok := range tokens {
		if tok == kw || (len(kw) >= 4 && strings.Contains(tok, kw)) {
			return true
		}
	}
	return false
}

// tokenize splits the host and path of raw into lowercase alphanumeric words.
// The leading "www" and the linkedin host are dropped.
func tokenize(raw string) []string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}

	fields := strings.FieldsFunc(u.Hostname()+"/"+u.Path, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		switch f {
		case "www", "linkedin", "in", "company", "com":
			continue
		}
		out = append(out, f)
	}
	return out
}
