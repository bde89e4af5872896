package engine

import (
	"math/rand"

	"github.com/mcastellin/gossip-detector/internal/membership"
)

// sampleWithoutReplacement returns up to k addresses drawn uniformly at
// random from candidates, with no duplicates. If k >= len(candidates),
// every candidate is returned (in randomized order).
//
// Drawing each index from rand.Intn(num) independently would sample WITH
// replacement and could return the same peer twice in one round, so this
// uses a Fisher-Yates partial shuffle instead.
func sampleWithoutReplacement(candidates []membership.Addr, k int) []membership.Addr {
	if k > len(candidates) {
		k = len(candidates)
	}
	pool := make([]membership.Addr, len(candidates))
	copy(pool, candidates)

	for i := 0; i < k; i++ {
		j := i + rand.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
