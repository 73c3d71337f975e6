package domain

// Sender tells who authored a message.
type Sender string

const (
	SenderBot  Sender = "bot"
	SenderUser Sender = "user"
)

// Choice is a selectable option attached to a bot message.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Message is an entry of the conversation timeline. Messages are never
// modified once appended.
type Message struct {
	ID      int64     `json:"id"`
	Sender  Sender    `json:"sender"`
	Body    string    `json:"body"`
	Options []Choice  `json:"options,omitempty"`
	Results []Profile `json:"results,omitempty"`
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	c := m
	c.Options = append([]Choice(nil), m.Options...)
	if len(m.Results) > 0 {
		c.Results = make([]Profile, len(m.Results))
		for i, p := range m.Results {
			c.Results[i] = p.Clone()
		}
	} else {
		c.Results = nil
	}
	if len(m.Options) == 0 {
		c.Options = nil
	}
	return c
}

// FromBot reports whether the bot authored the message.
func (m Message) FromBot() bool {
	return m.Sender == SenderBot
}
