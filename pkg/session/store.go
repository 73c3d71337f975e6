package session

import (
	"fmt"
	"sync"

	"github.com/aretw0/openstars/pkg/domain"
)

// Timeline is the append-only message log of one conversation.
// Safe for concurrent use.
type Timeline struct {
	mu       sync.RWMutex
	messages []domain.Message
}

// Append adds msg to the end of the timeline. Ids must strictly increase.
func (t *Timeline) Append(msg domain.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.messages); n > 0 && msg.ID <= t.messages[n-1].ID {
		return fmt.Errorf("%w: %d after %d", domain.ErrMessageOrder, msg.ID, t.messages[n-1].ID)
	}
	t.messages = append(t.messages, msg.Clone())
	return nil
}

// Messages returns a copy of every message in order.
func (t *Timeline) Messages() []domain.Message {
	return t.Since(0)
}

// Since returns copies of the messages whose id is greater than afterID.
func (t *Timeline) Since(afterID int64) []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.Message, 0, len(t.messages))
	for _, m := range t.messages {
		if m.ID > afterID {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Len returns the number of messages.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Store holds the session snapshot and timeline of one conversation generation.
type Store struct {
	mu       sync.RWMutex
	session  *domain.Session
	timeline Timeline
}

// NewStore creates a store around an initial snapshot.
func NewStore(initial *domain.Session) *Store {
	return &Store{session: initial.Clone()}
}

// Session returns a copy of the current snapshot.
func (s *Store) Session() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// Timeline returns the conversation timeline.
func (s *Store) Timeline() *Timeline {
	return &s.timeline
}

// Append adds a message to the timeline.
func (s *Store) Append(msg domain.Message) error {
	return s.timeline.Append(msg)
}

// Advance replaces the snapshot with next after checking the session invariants.
func (s *Store) Advance(next *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkAdvance(s.session, next); err != nil {
		return err
	}
	s.session = next.Clone()
	return nil
}

// Freeze marks the session as frozen. Frozen sessions ignore further events.
func (s *Store) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Frozen = true
}

// Frozen reports whether the session was frozen.
func (s *Store) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Frozen
}

func checkAdvance(prev, next *domain.Session) error {
	if next == nil {
		return fmt.Errorf("advance: %w", domain.ErrSessionNotFound)
	}
	if prev.Frozen {
		return domain.ErrSessionFrozen
	}
	if next.ID != prev.ID || next.Generation != prev.Generation || next.Nonce != prev.Nonce {
		return fmt.Errorf("%w: %s/%d -> %s/%d", domain.ErrGenerationChange, prev.ID, prev.Generation, next.ID, next.Generation)
	}
	if !next.Step.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidStep, next.Step)
	}
	for k, v := range prev.Answers {
		if nv, ok := next.Answers[k]; !ok || nv != v {
			return fmt.Errorf("%w: %s", domain.ErrAnswerRetracted, k)
		}
	}
	if prev.PremiumUnlocked && !next.PremiumUnlocked {
		return domain.ErrPremiumRevoked
	}
	if next.LastMessageID < prev.LastMessageID {
		return fmt.Errorf("%w: counter moved back", domain.ErrMessageOrder)
	}
	return nil
}
