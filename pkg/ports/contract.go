package ports

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunChargeGuardContract runs a suite of tests to verify that a ChargeGuard implementation
// adheres to the defined interface contract.
func RunChargeGuardContract(t *testing.T, guard ChargeGuard) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405.000000000")

	t.Run("First Acquire Wins", func(t *testing.T) {
		key := prefix + ":first"

		ok, err := guard.Acquire(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "first acquire should succeed")

		ok, err = guard.Acquire(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "second acquire must be refused")
	})

	t.Run("Keys Are Independent", func(t *testing.T) {
		a, err := guard.Acquire(ctx, prefix+":a")
		require.NoError(t, err)
		b, err := guard.Acquire(ctx, prefix+":b")
		require.NoError(t, err)
		assert.True(t, a)
		assert.True(t, b)
	})

	t.Run("Concurrent Acquire", func(t *testing.T) {
		key := prefix + ":race"
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, err := guard.Acquire(ctx, key); err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load(), "exactly one caller may win the key")
	})
}
