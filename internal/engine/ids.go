package engine

import (
	"sync"

	"github.com/google/uuid"
)

// QueryIDGenerator generates IDs that tie a Result to its log lines.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type QueryIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 query IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so IDs sort by
// creation time in logs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Format: "550e8400-e29b-41d4-a716-446655440000" (36 characters)
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined query IDs for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("q-1", "q-2")
//	gen.Generate() // "q-1"
//	gen.Generate() // "q-2"
//	gen.Generate() // panic: all IDs exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
//
// Panics if all IDs have been consumed, which means the test ran more
// queries than it planned for.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all IDs exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
