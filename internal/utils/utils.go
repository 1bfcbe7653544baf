package utils

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// GenerateID returns a random hex identifier of n characters (max 32).
func GenerateID(n int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n <= 0 || n > len(id) {
		return id
	}
	return id[:n]
}

// =============================================================================
// RANDOMNESS
// =============================================================================

// Randomizer is the source of every random draw the game engine makes.
// *rand.Rand from math/rand/v2 satisfies it.
type Randomizer interface {
	IntN(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// NewRandomizer returns a goroutine-safe Randomizer seeded from the runtime.
func NewRandomizer() Randomizer {
	return &lockedRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// RandIndexArray draws count distinct values from [0, size) by removing
// uniformly chosen entries from a pool. RandIndexArray(rng, 5, 2) might
// return [4 2].
func RandIndexArray(rng Randomizer, size, count int) []int {
	if count > size {
		count = size
	}
	pool := make([]int, size)
	for i := range pool {
		pool[i] = i
	}
	out := make([]int, 0, count)
	for range count {
		idx := rng.IntN(len(pool))
		out = append(out, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return out
}

// Permutation is a uniformly random ordering of [0, size).
func Permutation(rng Randomizer, size int) []int {
	return RandIndexArray(rng, size, size)
}
