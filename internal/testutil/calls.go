package testutil

import "sync"

// Calls counts engine calls by operation name.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Calls struct {
	mu sync.Mutex
	n  map[string]int
}

// Inc records one call to op.
func (c *Calls) Inc(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == nil {
		c.n = make(map[string]int)
	}
	c.n[op]++
}

// Count returns how many times op was called.
func (c *Calls) Count(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[op]
}

// Total returns the number of calls across all operations.
func (c *Calls) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.n {
		total += n
	}
	return total
}

// Reset forgets every recorded call.
//
// Used for test reuse: assertions after Reset only see later calls.
func (c *Calls) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = nil
}
