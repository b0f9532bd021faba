package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator returns "<prefix>-1", "<prefix>-2", ... and can be
// reset so a test can replay the same sequence.
//
// Thread-safety: all methods are safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequenceGenerator creates a generator starting at 1.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// Generate increments the counter and returns the next ID.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Current returns how many IDs have been generated.
func (g *SequenceGenerator) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. The next Generate returns "<prefix>-1".
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
