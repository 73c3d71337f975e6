package runtime

import (
	"math/rand/v2"
	"sync"

	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/ports"
)

// lockedRandom makes a seeded PCG source safe for concurrent use.
type lockedRandom struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom returns a deterministic ports.Random for the given seed.
func NewRandom(seed uint64) ports.Random {
	return &lockedRandom{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRandom) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Sample draws min(k, len(pool)) distinct profiles uniformly without replacement.
// pool is not modified.
func Sample(r ports.Random, pool []domain.Profile, k int) []domain.Profile {
	if k > len(pool) {
		k = len(pool)
	}
	if k <= 0 {
		return nil
	}
	picked := append([]domain.Profile(nil), pool...)
	for i := 0; i < k; i++ {
		j := i + r.IntN(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	out := make([]domain.Profile, k)
	for i := range out {
		out[i] = picked[i].Clone()
	}
	return out
}

// without returns the profiles of pool whose ids are not in shown.
func without(pool, shown []domain.Profile) []domain.Profile {
	seen := make(map[string]bool, len(shown))
	for _, p := range shown {
		seen[p.ID] = true
	}
	out := make([]domain.Profile, 0, len(pool))
	for _, p := range pool {
		if !seen[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func profileIDs(profiles []domain.Profile) []string {
	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}
	return ids
}
