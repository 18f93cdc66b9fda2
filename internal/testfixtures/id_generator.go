package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator produces deterministic sequential ids for tests.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewIDGenerator creates an IDGenerator with the given prefix.
func NewIDGenerator(prefix string) *IDGenerator {
	return &IDGenerator{prefix: prefix, next: 1}
}

// Next returns ids of the form "<prefix>-1", "<prefix>-2" and so on. Pass
// this method as the id generator dependency.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("%s-%d", g.prefix, g.next)
	g.next++
	return id
}
