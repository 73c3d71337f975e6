package runtime

import (
	"testing"

	"github.com/aretw0/openstars/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestFill(t *testing.T) {
	s := domain.NewSession("s1", 1)
	s.Answers[domain.AnswerIndustry] = "Fintech"
	s.Answers[string(domain.FieldName)] = "  Grace   Hopper "

	data := vars(s)
	assert.Equal(t, "Nice, Grace! Fintech at your stage {unknown}",
		fill("Nice, {first_name}! {industry} at {stage} {unknown}", data))
}

func TestFill_Placeholders(t *testing.T) {
	data := vars(domain.NewSession("s1", 1))
	assert.Equal(t, "friend / your space / your link", fill("{first_name} / {industry} / {url}", data))
}

func TestFill_URLPrefersWebsite(t *testing.T) {
	s := domain.NewSession("s1", 1)
	s.Answers[string(domain.FieldLinkedIn)] = "linkedin.com/in/x"
	assert.Equal(t, "linkedin.com/in/x", vars(s)["url"])

	s.Answers[string(domain.FieldWebsite)] = "https://acme.ai"
	assert.Equal(t, "https://acme.ai", vars(s)["url"])
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		cents    int64
		currency string
		want     string
	}{
		{4900, "usd", "$49"},
		{4950, "USD", "$49.50"},
		{1999, "eur", "19.99 EUR"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatPrice(tt.cents, tt.currency))
	}
}

func TestPlanFor(t *testing.T) {
	p := planFor(RoleFounder)
	assert.Equal(t, domain.FieldWebsite, p.analyze)
	assert.Equal(t, domain.FieldTraction, p.after(domain.FieldWebsite))
	assert.Equal(t, domain.FieldPhone, p.after(domain.FieldName))
	assert.Equal(t, domain.Field(""), p.after(domain.FieldPhone))

	assert.Equal(t, domain.FieldLinkedIn, planFor("anything").analyze)
}

func TestPromptsExistForEveryField(t *testing.T) {
	for _, role := range []string{RoleFounder, RoleInvestor, RoleOther} {
		for _, f := range planFor(role).fields {
			assert.NotEmpty(t, promptFor(f, role), "missing prompt for %s/%s", role, f)
		}
	}
}
