// Package stats is a minimal in-memory counter set the driver updates
// as it runs, exposed via Snapshot for a future dashboard to poll.
// Grounded on the teacher's providerStats struct in
// internal/infrastructure/llm/router.go (mutex-guarded counters),
// trimmed to the counters Ralph's driver actually produces. Kept on
// sync.Mutex rather than prometheus/client_golang: no example repo in
// the corpus gives a single-process CLI a coherent metrics-exporter
// story, so there is nothing to wire a metrics library to here.
package stats

import "sync"

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Iterations         int
	Rotations          int
	Gutters            int
	VerificationFails  int
	Questions          int
}

// Counters accumulates driver-loop events across a run.
type Counters struct {
	mu   sync.Mutex
	snap Snapshot
}

func New() *Counters {
	return &Counters{}
}

func (c *Counters) IncIteration() {
	c.mu.Lock()
	c.snap.Iterations++
	c.mu.Unlock()
}

func (c *Counters) IncRotation() {
	c.mu.Lock()
	c.snap.Rotations++
	c.mu.Unlock()
}

func (c *Counters) IncGutter() {
	c.mu.Lock()
	c.snap.Gutters++
	c.mu.Unlock()
}

func (c *Counters) IncVerificationFail() {
	c.mu.Lock()
	c.snap.VerificationFails++
	c.mu.Unlock()
}

func (c *Counters) IncQuestion() {
	c.mu.Lock()
	c.snap.Questions++
	c.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}
