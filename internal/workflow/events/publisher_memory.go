package events

import (
	"context"
	"sync"
)

// MemoryPublisher collects events in memory. Used by unit tests and as a
// stand-in when no brokers are configured.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []StateChanged
}

// NewMemory constructs an empty in-memory publisher.
func NewMemory() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event StateChanged) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *MemoryPublisher) Close() {}

// Events returns a snapshot of everything published so far.
func (p *MemoryPublisher) Events() []StateChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StateChanged, len(p.events))
	copy(out, p.events)
	return out
}
