package memory

import (
	"context"
	"sync"
	"time"
)

// ChargeGuard implements ports.ChargeGuard in memory.
// Safe for concurrent use. Reservations expire after the configured TTL.
type ChargeGuard struct {
	mu   sync.Mutex
	keys map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewChargeGuard creates an in-memory guard. A ttl <= 0 keeps reservations forever.
func NewChargeGuard(ttl time.Duration) *ChargeGuard {
	return &ChargeGuard{
		keys: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Acquire reserves key unless a live reservation exists.
func (g *ChargeGuard) Acquire(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expires, ok := g.keys[key]; ok && (expires.IsZero() || now.Before(expires)) {
		return false, nil
	}

	var expires time.Time
	if g.ttl > 0 {
		expires = now.Add(g.ttl)
	}
	g.keys[key] = expires
	return true, nil
}

// Len returns the number of reservations, expired or not.
func (g *ChargeGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.keys)
}
