package speech

import "sync"

// GestureBus is a deferred-action queue keyed to the next user gesture.
// Hosts call Trigger when the platform reports an interaction; every
// registration runs at most once.
type GestureBus struct {
	mu      sync.Mutex
	pending []func()
}

// NewGestureBus returns an empty bus.
func NewGestureBus() *GestureBus { return &GestureBus{} }

// OnNextGesture registers fn to run on the next Trigger.
func (b *GestureBus) OnNextGesture(fn func()) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	b.pending = append(b.pending, fn)
	b.mu.Unlock()
}

// Trigger simulates or reports a user gesture, draining the queue.
func (b *GestureBus) Trigger() {
	b.mu.Lock()
	fns := b.pending
	b.pending = nil
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Pending reports how many actions await the next gesture.
func (b *GestureBus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
