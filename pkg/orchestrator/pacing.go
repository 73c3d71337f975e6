package orchestrator

import (
	"context"
	"time"
)

// composeDelay draws the typing pause uniformly from [composeMin, composeMax].
func (o *Orchestrator) composeDelay() time.Duration {
	span := o.composeMax - o.composeMin
	if span <= 0 {
		return o.composeMin
	}
	return o.composeMin + time.Duration(o.random.IntN(int(span)+1))
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
