package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable stored-name suffixes: prefix followed
// by a zero-padded counter starting at 0001.
//
// It satisfies attach.IDGenerator, so tests can assert exact stored names.
// Thread-safety: Generate is safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator with the given prefix.
func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%04d", g.prefix, g.n)
}
