package session

import (
	"fmt"
	"sync/atomic"
)

// Generator produces monotonically increasing segment IDs scoped to a
// session.
type Generator struct {
	counter uint64
}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Next(sessionID string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-seg-%d", sessionID, n)
}
