package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/openstars/pkg/domain"
)

const (
	copyGreeting      = "Hey! ✨ I'm Star, your AI superconnector.\n\nI help founders connect with investors, VCs, and the right people to scale."
	copyRolePrompt    = "How would you describe yourself?"
	copyFounderGoal   = "Love it! 🔥 What are you looking for?"
	copyInvestorFocus = "Great! What's most valuable for you?"
	copyOtherIntake   = "Awesome! What brings you here?"

	copyAnalyzing = "Analyzing {url}... ⏳"
	copyResults   = "Nice, {first_name}! 👋\n\nBased on {industry} at {stage}, here are {count} {pool} worth meeting:"
	copyUpsell    = "Want {count} more hand-picked intros plus priority matching? It's a one-time {price}."
	copyPayLabel  = "💳 Unlock premium ({price})"
	copySkipLabel = "🙅 Maybe later"

	copyCheckout       = "Opening secure checkout... 🔒"
	copyUnlocked       = "Payment confirmed! 🎉 Premium unlocked."
	copyBonus          = "Here are {count} bonus {pool} for you:"
	copyBonusExhausted = "You've already seen every match we have in this pool. We'll hand-pick more for you."
	copyPaymentFailed  = "Payment didn't go through ({reason}), proceeding without unlock. You have not been charged."
	copyFallback       = "No worries! Your free matches are still yours:"

	copyEmailPrompt  = "Where should we send your intros? 📧"
	copySubmitting   = "Submitting your info... ⏳"
	copyConfirmation = "You're in! 🚀✨\n\nWe'll reach out within 24-48hrs with your first introductions.\n\nWelcome to OpenStars! 🌟"
)

var fieldPrompts = map[domain.Field]string{
	domain.FieldLinkedIn:  "Got it! 🌐\n\nWhat's your LinkedIn URL?",
	domain.FieldTraction:  "Looks like you're building in {industry}. 🚀\n\nWhat traction do you have so far? (revenue, users, pilots)",
	domain.FieldStage:     "Got it! 📈\n\nWhat stage are you at? (pre-seed, seed, Series A...)",
	domain.FieldCheckSize: "{industry} is a hot space right now. 💎\n\nWhat's your typical check size?",
	domain.FieldPitch:     "You're in the {industry} orbit. ✨\n\nOne-liner about what you're working on?",
	domain.FieldName:      "Perfect! Let's get you connected.\n\nWhat's your full name?",
	domain.FieldPhone:     "Thanks, {first_name}! 📱\n\nPhone? (for warm intros)",
	domain.FieldEmail:     copyEmailPrompt,
}

var placeholders = map[string]string{
	"industry":   "your space",
	"stage":      "your stage",
	"first_name": "friend",
	"reason":     "unknown error",
	"url":        "your link",
}

var poolNames = map[domain.ProfileKind]string{
	domain.ProfileInvestor: "investors",
	domain.ProfileStartup:  "startups",
	domain.ProfileTalent:   "people",
}

func promptFor(field domain.Field, role string) string {
	if field == domain.FieldWebsite {
		if role == RoleInvestor {
			return "Nice! Share your fund's website so I can map your thesis. 🔎"
		}
		return "Perfect! Drop your startup's website and I'll take a look. 🔎"
	}
	return fieldPrompts[field]
}

// vars builds the interpolation data for s. Answers are used verbatim.
func vars(s *domain.Session) map[string]string {
	data := make(map[string]string, len(s.Answers)+len(placeholders))
	for k, v := range placeholders {
		data[k] = v
	}
	for k, v := range s.Answers {
		if v != "" {
			data[k] = v
		}
	}
	if name := strings.Fields(s.Answers[string(domain.FieldName)]); len(name) > 0 {
		data["first_name"] = name[0]
	}
	if v, ok := s.Answers[string(domain.FieldWebsite)]; ok {
		data["url"] = v
	} else if v, ok := s.Answers[string(domain.FieldLinkedIn)]; ok {
		data["url"] = v
	}
	return data
}

// fill replaces {key} placeholders in template. Unknown keys are left as is.
func fill(template string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func formatPrice(cents int64, currency string) string {
	if strings.EqualFold(currency, "usd") {
		if cents%100 == 0 {
			return "$" + strconv.FormatInt(cents/100, 10)
		}
		return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	}
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}
