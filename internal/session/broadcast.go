package session

import (
	"sync"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/model"
)

// Listener receives a snapshot of the new state after every transition.
type Listener func(model.AuthState)

type subscription struct {
	id uint64
	fn Listener
}

// Broadcaster is an ordered, synchronous fan-out of AuthState snapshots.
//
// Publish calls every listener that was registered when the round started,
// in registration order, on the caller's goroutine. Nothing is queued,
// coalesced or dropped: one Publish is one round.
//
// The zero value is ready to use.
type Broadcaster struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

// Subscribe registers fn and returns a function that removes it.
// The returned function is idempotent and only ever removes this
// registration, even if the same fn was subscribed more than once.
func (b *Broadcaster) Subscribe(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			// copy into a fresh slice: a Publish round may be iterating the old one
			next := make([]subscription, 0, len(b.subs)-1)
			next = append(next, b.subs[:i]...)
			next = append(next, b.subs[i+1:]...)
			b.subs = next
			return
		}
	}
}

// Publish delivers state to every current listener. Each listener gets its
// own deep copy, so one listener mutating its snapshot cannot affect another.
func (b *Broadcaster) Publish(state model.AuthState) {
	b.mu.Lock()
	round := b.subs
	b.mu.Unlock()

	for _, s := range round {
		s.fn(state.Clone())
	}
}

// count reports the number of registered listeners.
func (b *Broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
