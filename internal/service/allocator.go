package service

import (
	"math/rand/v2"
	"sync"
	"time"

	"nodetree.io/nodetree/internal/domain"
)

// Window allocation bounds: min_num is drawn from [WindowMinLow, WindowMinHigh]
// and max_num from [min_num+1, min_num+WindowMaxSpan].
const (
	WindowMinLow  = 1
	WindowMinHigh = 970
	WindowMaxSpan = 30
)

// RangeAllocator assigns the numeric window of a new node.
type RangeAllocator interface {
	Allocate() domain.Window
}

// RandomRangeAllocator draws windows uniformly. Safe for concurrent use.
type RandomRangeAllocator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomRangeAllocator creates an allocator. A nil src seeds from the clock.
func NewRandomRangeAllocator(src rand.Source) *RandomRangeAllocator {
	return &RandomRangeAllocator{rng: newRand(src)}
}

// Allocate implements RangeAllocator.
func (a *RandomRangeAllocator) Allocate() domain.Window {
	a.mu.Lock()
	defer a.mu.Unlock()

	lo := WindowMinLow + a.rng.IntN(WindowMinHigh-WindowMinLow+1)
	hi := lo + 1 + a.rng.IntN(WindowMaxSpan)
	return domain.Window{Min: lo, Max: hi}
}

// FixedRangeAllocator always returns the same window.
type FixedRangeAllocator domain.Window

// Allocate implements RangeAllocator.
func (f FixedRangeAllocator) Allocate() domain.Window {
	return domain.Window(f)
}

func newRand(src rand.Source) *rand.Rand {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
	return rand.New(src)
}
