package session

import (
	"context"
	"sync"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/model"
)

// Watch returns a channel that receives a snapshot after every transition
// from the moment Watch returns until ctx is done, when the channel closes.
//
// Snapshots go through an unbounded per-watcher queue, so a slow reader
// never blocks Login/Logout and never misses a transition.
func (m *Manager) Watch(ctx context.Context) <-chan model.AuthState {
	out := make(chan model.AuthState)
	q := newStateQueue()
	unsubscribe := m.Subscribe(q.push)

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			st, ok := q.pop(ctx)
			if !ok {
				return
			}
			select {
			case out <- st:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

type stateQueue struct {
	mu     sync.Mutex
	items  []model.AuthState
	notify chan struct{}
}

func newStateQueue() *stateQueue {
	return &stateQueue{notify: make(chan struct{}, 1)}
}

func (q *stateQueue) push(s model.AuthState) {
	q.mu.Lock()
	q.items = append(q.items, s)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop blocks until an item is available or ctx is done.
func (q *stateQueue) pop(ctx context.Context) (model.AuthState, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			s := q.items[0]
			q.items[0] = model.AuthState{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return s, true
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return model.AuthState{}, false
		}
	}
}
