package orchestrator

import (
	"log/slog"
	"sync"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/pkg/domain"
)

// subscriberBuffer is the number of messages held for a slow subscriber
// before new ones are dropped.
const subscriberBuffer = 16

// MessageAppended is published whenever a message joins a session timeline.
type MessageAppended struct {
	SessionID  string         `json:"session_id"`
	Generation uint64         `json:"generation"`
	Message    domain.Message `json:"message"`
}

// Broker fans appended messages out to per-session subscribers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan MessageAppended]struct{}
	logger      *slog.Logger
}

// NewBroker creates a broker. A nil logger discards output.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Broker{
		subscribers: make(map[string]map[chan MessageAppended]struct{}),
		logger:      logger,
	}
}

// Subscribe registers interest in a session. The returned func unsubscribes
// and closes the channel.
func (b *Broker) Subscribe(sessionID string) (<-chan MessageAppended, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan MessageAppended, subscriberBuffer)
	if _, ok := b.subscribers[sessionID]; !ok {
		b.subscribers[sessionID] = make(map[chan MessageAppended]struct{})
	}
	b.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(b.subscribers, sessionID)
				}
			}
		})
	}
}

// Publish delivers ev to every subscriber of its session without blocking.
func (b *Broker) Publish(ev MessageAppended) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("Subscriber buffer full, dropping message",
				"session_id", ev.SessionID, "message_id", ev.Message.ID)
		}
	}
}

// Subscribers returns the number of subscribers of a session.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[sessionID])
}
