package domain

import "time"

// ProfileKind classifies a candidate profile.
type ProfileKind string

const (
	ProfileInvestor ProfileKind = "investor"
	ProfileStartup  ProfileKind = "startup"
	ProfileTalent   ProfileKind = "talent"
)

// Profile is a candidate introduction attached to a results message.
type Profile struct {
	ID       string      `json:"id" yaml:"id"`
	Kind     ProfileKind `json:"kind" yaml:"kind"`
	Name     string      `json:"name" yaml:"name"`
	Headline string      `json:"headline" yaml:"headline"`
	Detail   string      `json:"detail,omitempty" yaml:"detail,omitempty"`
	Tags     []string    `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Clone returns a copy that shares no slices with p.
func (p Profile) Clone() Profile {
	c := p
	c.Tags = append([]string(nil), p.Tags...)
	if len(p.Tags) == 0 {
		c.Tags = nil
	}
	return c
}

// LeadRecord is the payload handed to the notifier once a visitor finishes.
type LeadRecord struct {
	SessionID       string            `json:"session_id"`
	Generation      uint64            `json:"generation"`
	Role            string            `json:"role"`
	Goal            string            `json:"goal"`
	Answers         map[string]string `json:"answers"`
	PremiumUnlocked bool              `json:"premium_unlocked"`
	Matches         []string          `json:"matches,omitempty"`
	SubmittedAt     time.Time         `json:"submitted_at"`
}

// ChargeRequest describes a one-time payment for an offer.
type ChargeRequest struct {
	SessionID      string `json:"session_id"`
	Offer          string `json:"offer"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
}

// ChargeOutcome is the provider's answer to a charge.
type ChargeOutcome struct {
	Approved  bool   `json:"approved"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
