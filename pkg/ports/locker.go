package ports

import "context"

// ChargeGuard provides at-most-once admission for charges.
// It allows several orchestrator replicas to share one offer without double billing.
type ChargeGuard interface {
	// Acquire reserves key. It returns false if the key was already reserved,
	// in which case the caller MUST NOT charge.
	Acquire(ctx context.Context, key string) (bool, error)
}
