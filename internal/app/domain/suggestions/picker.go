package suggestions

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Picker chooses among eligible places. Exploration and category modes
// go through it so tests can pin the outcome.
type Picker interface {
	// Pick returns an index in [0, n).
	Pick(n int) int
	// Sample returns up to k distinct indexes in [0, n).
	Sample(n, k int) []int
}

// RandPicker draws uniformly from a seeded PCG source.
type RandPicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandPicker seeds from the clock when seed is zero.
func NewRandPicker(seed int64) *RandPicker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandPicker{rnd: rand.New(rand.NewPCG(uint64(seed), uint64(seed>>1)|1))}
}

func (p *RandPicker) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.IntN(n)
}

func (p *RandPicker) Sample(n, k int) []int {
	if n <= 0 || k <= 0 {
		return nil
	}
	p.mu.Lock()
	perm := p.rnd.Perm(n)
	p.mu.Unlock()
	if k > n {
		k = n
	}
	return perm[:k]
}
