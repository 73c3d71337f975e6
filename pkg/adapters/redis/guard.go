package redis

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "openstars:charge:"
	defaultTTL    = 24 * time.Hour
)

// ChargeGuard implements ports.ChargeGuard using Redis SET NX.
// Reservations are shared by every replica pointing at the same Redis.
type ChargeGuard struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*ChargeGuard)

// WithTTL sets how long a reservation blocks further charges.
func WithTTL(ttl time.Duration) Option {
	return func(g *ChargeGuard) {
		g.ttl = ttl
	}
}

// WithPrefix sets the key prefix for reservations.
func WithPrefix(prefix string) Option {
	return func(g *ChargeGuard) {
		g.prefix = prefix
	}
}

// New creates a guard backed by a new Redis client.
func New(address, password string, db int, opts ...Option) *ChargeGuard {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a guard from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *ChargeGuard {
	g := &ChargeGuard{
		client: client,
		prefix: defaultPrefix,
		ttl:    defaultTTL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *ChargeGuard) key(k string) string {
	return g.prefix + k
}

// Acquire reserves key with SET NX PX.
func (g *ChargeGuard) Acquire(ctx context.Context, key string) (bool, error) {
	val := fmt.Sprintf("%d", time.Now().UnixNano())
	ok, err := g.client.SetNX(ctx, g.key(key), val, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis error acquiring charge guard: %w", err)
	}
	return ok, nil
}

// Close releases the underlying client.
func (g *ChargeGuard) Close() error {
	return g.client.Close()
}
