package services

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the randomness capability behind jitter, top-pool sampling, and
// result shuffling. Injecting it keeps the randomized paths testable with a
// fixed seed.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Perm(n int) []int
	Shuffle(n int, swap func(i, j int))
}

// lockedRand guards a rand.Rand so concurrent request workers can share one
// source.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a seeded source; tests pass a fixed seed and assert exact
// selections.
func NewRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// NewTimeRand returns the production source.
func NewTimeRand() Rand {
	return NewRand(time.Now().UnixNano())
}

func (lr *lockedRand) Float64() float64 {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.r.Float64()
}

func (lr *lockedRand) Intn(n int) int {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.r.Intn(n)
}

func (lr *lockedRand) Perm(n int) []int {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.r.Perm(n)
}

func (lr *lockedRand) Shuffle(n int, swap func(i, j int)) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.r.Shuffle(n, swap)
}
