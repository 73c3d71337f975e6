package domain

// Answer keys outside the capture fields.
const (
	AnswerRole     = "role"
	AnswerGoal     = "goal"
	AnswerIndustry = "industry"
)

// Session represents the current snapshot of one conversation.
type Session struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`

	// Nonce is drawn once per open. It keeps keys derived from the session
	// unique across processes that reuse the same id and generation.
	Nonce string `json:"nonce,omitempty"`

	// Step is the vertex reached by the most recently completed transition.
	Step Step `json:"step"`

	// Answers accumulates the visitor's answers. Keys are never removed or rewritten.
	Answers map[string]string `json:"answers"`

	// PremiumUnlocked is set once by a successful charge and never cleared.
	PremiumUnlocked bool `json:"premium_unlocked"`

	// AwaitingMessageID is the bot message whose options are still selectable (0 when none).
	AwaitingMessageID int64    `json:"awaiting_message_id,omitempty"`
	AwaitingOptions   []Choice `json:"awaiting_options,omitempty"`

	// PendingToken identifies the adapter call or continuation the session waits on.
	PendingToken string `json:"pending_token,omitempty"`

	// Shown holds the profiles presented as the free results.
	Shown []Profile `json:"shown,omitempty"`

	History       []Step `json:"history"`
	LastMessageID int64  `json:"last_message_id"`

	// Frozen is set after an invariant violation. Frozen sessions ignore events.
	Frozen bool `json:"frozen,omitempty"`
}

// NewSession creates a clean session at the welcome step.
func NewSession(id string, generation uint64) *Session {
	return &Session{
		ID:         id,
		Generation: generation,
		Step:       At(StepWelcome),
		Answers:    make(map[string]string),
		History:    []Step{At(StepWelcome)},
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	c.AwaitingOptions = append([]Choice(nil), s.AwaitingOptions...)
	c.Shown = make([]Profile, len(s.Shown))
	for i, p := range s.Shown {
		c.Shown[i] = p.Clone()
	}
	if len(s.Shown) == 0 {
		c.Shown = nil
	}
	c.History = append([]Step(nil), s.History...)
	return &c
}

// Answer returns the stored answer for key.
func (s *Session) Answer(key string) (string, bool) {
	v, ok := s.Answers[key]
	return v, ok
}

// Option looks up a choice in the awaiting option set.
func (s *Session) Option(id string) (Choice, bool) {
	for _, c := range s.AwaitingOptions {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// Awaiting reports whether the given message still has selectable options.
func (s *Session) Awaiting(messageID int64) bool {
	return messageID != 0 && s.AwaitingMessageID == messageID
}
